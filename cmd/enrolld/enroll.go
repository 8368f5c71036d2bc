package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seatwise/course-enrollment/internal/enrollment"
)

func enrollCommand() *cobra.Command {
	var studentID, sectionID uint64
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "claim a seat for a student, queueing them if the section is full",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := s.coordinator.Enroll(ctx, studentID, sectionID)
			if err != nil {
				return err
			}
			switch res.Status {
			case enrollment.StatusEnrolled:
				fmt.Printf("enrolled: student %d holds seat (enrollment %d) in section %d\n", studentID, res.Enrollment.ID, sectionID)
			case enrollment.StatusWaitlisted:
				fmt.Printf("waitlisted: student %d is number %d in line for section %d\n", studentID, res.Rank, sectionID)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Uint64Var(&sectionID, "section", 0, "section id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}
