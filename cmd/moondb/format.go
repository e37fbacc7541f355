package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eternalApril/moondb"
)

// formatReply renders a reply the way redis-cli does
func formatReply(v moondb.Value, err error) string {
	if err != nil {
		return "(error) " + err.Error()
	}
	var b strings.Builder
	writeReply(&b, v, "")
	return strings.TrimSuffix(b.String(), "\n")
}

func writeReply(b *strings.Builder, v moondb.Value, indent string) {
	switch v.Kind() {
	case moondb.KindNull:
		b.WriteString("(nil)\n")
	case moondb.KindInteger:
		fmt.Fprintf(b, "(integer) %d\n", v.Integer())
	case moondb.KindBoolean:
		fmt.Fprintf(b, "(boolean) %t\n", v.Boolean())
	case moondb.KindBytes:
		s := string(v.Bytes())
		switch {
		case s == "OK" || s == "PONG":
			// status replies are printed bare
			b.WriteString(s)
		case strings.Contains(s, "\r\n"):
			// multi-line text such as INFO
			b.WriteString(strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n"))
		default:
			b.WriteString(strconv.Quote(s))
		}
		b.WriteByte('\n')
	case moondb.KindList:
		items := v.List()
		if len(items) == 0 {
			b.WriteString("(empty array)\n")
			return
		}
		writeItems(b, indent, len(items), ")", func(i int) {
			writeReply(b, items[i], indent+strings.Repeat(" ", len(strconv.Itoa(len(items)))+2))
		})
	case moondb.KindMap:
		fields := v.Fields()
		if len(fields) == 0 {
			b.WriteString("(empty hash)\n")
			return
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		writeItems(b, indent, len(names), "#", func(i int) {
			b.WriteString(strconv.Quote(names[i]) + " => ")
			writeReply(b, fields[names[i]], indent+strings.Repeat(" ", len(strconv.Itoa(len(names)))+2))
		})
	case moondb.KindSet:
		members := v.Members()
		if len(members) == 0 {
			b.WriteString("(empty set)\n")
			return
		}
		writeItems(b, indent, len(members), "~", func(i int) {
			b.WriteString(strconv.Quote(members[i]) + "\n")
		})
	}
}

// writeItems numbers n items with a right-aligned index and the given marker.
// The first item continues the current line, the others are indented
func writeItems(b *strings.Builder, indent string, n int, marker string, item func(i int)) {
	width := len(strconv.Itoa(n))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(indent)
		}
		fmt.Fprintf(b, "%*d%s ", width, i+1, marker)
		item(i)
	}
}
