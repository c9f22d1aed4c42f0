package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"FinCast/internal/services/risk"
	"FinCast/pkg/util"
)

func newRiskCmd(_ *rootOptions) *cobra.Command {
	var answers string
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Score the risk questionnaire",
		Long: `Risk asks the four questionnaire items and maps the total score to a
risk profile. Pass --answers to skip the prompts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var picks []int
			if answers != "" {
				for _, s := range util.SplitCSV(answers) {
					picks = append(picks, util.ParseIntDefault(s, 0))
				}
			} else {
				var err error
				picks, err = askQuestions(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}
			p, score, err := risk.Assess(picks)
			if err != nil {
				return err
			}
			th := p.Thresholds()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Risk profile: %s (score %d)\n", p, score)
			fmt.Fprintf(out, "BUY when signal score >= %d, SELL when signal score <= %d\n", th.Buy, th.Sell)
			return nil
		},
	}
	cmd.Flags().StringVar(&answers, "answers", "", "comma separated options, one per question (1-3)")
	return cmd
}

// askQuestions prompts until every question has a valid option.
func askQuestions(in io.Reader, out io.Writer) ([]int, error) {
	sc := bufio.NewScanner(in)
	picks := make([]int, 0, len(risk.Questionnaire))
	for _, q := range risk.Questionnaire {
		fmt.Fprintf(out, "\n%d. %s\n", q.ID, q.Text)
		for i, o := range q.Options {
			fmt.Fprintf(out, "   %d) %s\n", i+1, o.Text)
		}
		for {
			fmt.Fprint(out, "choice [1-3]: ")
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, err
				}
				return nil, io.ErrUnexpectedEOF
			}
			n := util.ParseIntDefault(strings.TrimSpace(sc.Text()), 0)
			if n >= 1 && n <= 3 {
				picks = append(picks, n)
				break
			}
			fmt.Fprintln(out, "please enter 1, 2 or 3")
		}
	}
	fmt.Fprintln(out)
	return picks, nil
}
