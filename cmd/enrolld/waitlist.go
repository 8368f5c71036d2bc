package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func withdrawCommand() *cobra.Command {
	var studentID, sectionID uint64
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "take a student off a section's waitlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := s.manager.Withdraw(ctx, studentID, sectionID); err != nil {
				return err
			}
			fmt.Printf("withdrawn: student %d left the line for section %d\n", studentID, sectionID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Uint64Var(&sectionID, "section", 0, "section id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

func positionCommand() *cobra.Command {
	var studentID, sectionID uint64
	cmd := &cobra.Command{
		Use:   "position",
		Short: "show a student's place in a section's waitlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rank, err := s.manager.Position(ctx, studentID, sectionID)
			if err != nil {
				return err
			}
			fmt.Printf("student %d is number %d in line for section %d\n", studentID, rank, sectionID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Uint64Var(&sectionID, "section", 0, "section id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}
