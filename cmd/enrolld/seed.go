package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seatwise/course-enrollment/internal/config"
	"github.com/seatwise/course-enrollment/internal/database"
	"github.com/seatwise/course-enrollment/internal/model"
	"github.com/seatwise/course-enrollment/internal/schedule"
	"github.com/seatwise/course-enrollment/internal/store"
	"github.com/seatwise/course-enrollment/internal/store/mysql"
)

// seedCatalog mirrors the YAML layout of a term catalog file.
type seedCatalog struct {
	Courses []seedCourse `yaml:"courses"`
}

type seedCourse struct {
	Code     string        `yaml:"code"`
	Title    string        `yaml:"title"`
	Credits  uint32        `yaml:"credits"`
	Sections []seedSection `yaml:"sections"`
}

type seedSection struct {
	Semester string `yaml:"semester"`
	Capacity uint32 `yaml:"capacity"`
	Schedule string `yaml:"schedule"`
	Room     string `yaml:"room"`
}

func seedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load a term catalog from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var catalog seedCatalog
			if err := yaml.Unmarshal(raw, &catalog); err != nil {
				return fmt.Errorf("parse catalog: %w", err)
			}

			cfg := config.Load()
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			return seedRun(ctx, mysql.New(db), catalog)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog file to load")
	return cmd
}

// seedRun inserts the catalog.  Re-running with the same file is safe:
// a course code already present is skipped together with its sections
// rather than duplicated.
func seedRun(ctx context.Context, st store.Store, catalog seedCatalog) error {
	var courses, sections, skipped int
	for _, c := range catalog.Courses {
		course := &model.Course{Code: c.Code, Title: c.Title, Credits: c.Credits}
		if err := st.CreateCourse(ctx, course); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				log.Printf("%s: course %s already present, skipping it and its sections", programName, c.Code)
				skipped++
				continue
			}
			return fmt.Errorf("create course %s: %w", c.Code, err)
		}
		courses++
		for i, sc := range c.Sections {
			if sc.Capacity == 0 {
				return fmt.Errorf("%s section %d: capacity must be positive", c.Code, i+1)
			}
			if _, err := schedule.Parse(sc.Schedule); err != nil {
				log.Printf("%s: %s section %d: schedule %q is not parseable and will never conflict", programName, c.Code, i+1, sc.Schedule)
			}
			sec := &model.Section{
				CourseID: course.ID,
				Semester: sc.Semester,
				Capacity: sc.Capacity,
				Schedule: sc.Schedule,
				Room:     sc.Room,
			}
			if err := st.CreateSection(ctx, sec); err != nil {
				return fmt.Errorf("create %s section %d: %w", c.Code, i+1, err)
			}
			sections++
		}
	}
	log.Printf("%s: seeded %d courses and %d sections (%d already present)", programName, courses, sections, skipped)
	return nil
}
