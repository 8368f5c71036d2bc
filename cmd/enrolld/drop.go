package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func dropCommand() *cobra.Command {
	var studentID, sectionID uint64
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "release a student's seat and hand it to the promotion pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(nil)
			if err != nil {
				return err
			}
			// Close drains the in-process pipeline, so in broker-less
			// setups the freed seat is re-offered before we exit.
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := s.coordinator.Drop(ctx, studentID, sectionID); err != nil {
				return err
			}
			fmt.Printf("dropped: student %d released their seat in section %d\n", studentID, sectionID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Uint64Var(&sectionID, "section", 0, "section id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}
