package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
)

func (cli *commandLine) winnerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "winner",
		Short: "Show or declare the winner of a program",
	}

	show := &cobra.Command{
		Use:   "show PROGRAM_ID",
		Short: "Print the winner of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return core.NewValidationError(nil, core.FieldError{Field: "programId", Error: "must be a number"})
			}
			w, ok, err := cli.programSvc.GetProgramWinner(context.Background(), id)
			if err != nil {
				return err
			}
			if !ok {
				cli.printf("program %d has no winner yet\n", id)
				return nil
			}
			cli.printf("%s: %s (candidature %d) won at phase %q\n", w.Program.Name, w.Candidature.Name, w.Candidature.ID, w.Phase.Name)
			return nil
		},
	}

	var req program.DeclareWinnerRequest
	declare := &cobra.Command{
		Use:   "declare",
		Short: "Declare the winner on the terminal phase of its program",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.programSvc.DeclareWinner(context.Background(), req)
			if err != nil {
				return err
			}
			cli.printf("%s: candidature %d at phase %q\n", res.Message, res.CandidatureID, res.Phase.Name)
			return nil
		},
	}
	declare.Flags().IntVar(&req.PhaseID, "phase", 0, "the terminal phase id")
	declare.Flags().IntVar(&req.CandidatureID, "candidature", 0, "the winning candidature id")

	cmd.AddCommand(show, declare)
	return cmd
}
