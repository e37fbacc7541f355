package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eternalApril/moondb"
	"github.com/spf13/cobra"
)

const prompt = "moondb> "

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell against a fresh in-memory store",
		Long: `Reads one command per line and prints the reply redis-cli style.
Arguments are separated by spaces, quote them to keep spaces. Type quit to leave.`,
		Args: cobra.NoArgs,
		RunE: runRepl,
	}

	execCmd = &cobra.Command{
		Use:   "exec CMD [ARGS...]",
		Short: "Run a single command against a fresh in-memory store",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExec,
	}

	errUnbalancedQuotes = errors.New("unbalanced quotes")
)

func init() {
	// everything after the command name belongs to the command, e.g. LRANGE k 0 -1
	execCmd.Flags().SetInterspersed(false)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	db, log, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.Close()  //nolint:errcheck

	return repl(db, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runExec(cmd *cobra.Command, args []string) error {
	db, log, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer db.Close()  //nolint:errcheck

	v, err := db.Do(args[0], args[1:])
	fmt.Fprintln(cmd.OutOrStdout(), formatReply(v, err))
	if err != nil {
		return errCommandFailed
	}
	return nil
}

// repl executes lines from in until EOF or quit
func repl(db *moondb.DB, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		args, err := splitArgs(scanner.Text())
		switch {
		case err != nil:
			fmt.Fprintf(out, "(error) %v\n", err)
		case len(args) == 0:
		case strings.EqualFold(args[0], "quit") || strings.EqualFold(args[0], "exit"):
			return nil
		default:
			v, err := db.Do(args[0], args[1:])
			fmt.Fprintln(out, formatReply(v, err))
		}
		fmt.Fprint(out, prompt)
	}
	fmt.Fprintln(out)

	return scanner.Err()
}

// splitArgs tokenizes a command line. Double quotes support \" \\ \n \t \r
// escapes, single quotes are taken literally
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inToken bool
		quote   byte
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case quote == '"' && c == '\\' && i+1 < len(line):
			i++
			switch line[i] {
			case 'n':
				cur.WriteByte('\n')
			case 't':
				cur.WriteByte('\t')
			case 'r':
				cur.WriteByte('\r')
			default:
				cur.WriteByte(line[i])
			}
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			cur.WriteByte(c)
		case c == '"' || c == '\'':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, errUnbalancedQuotes
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
