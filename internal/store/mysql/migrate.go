package mysql

import (
	"context"
	"fmt"
)

// ddl holds the schema statements in dependency order.  Every
// statement is idempotent, so running Migrate repeatedly is safe.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS courses (
	    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    code       VARCHAR(32)  NOT NULL,
	    title      VARCHAR(255) NOT NULL,
	    credits    INT UNSIGNED NOT NULL DEFAULT 0,
	    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_courses_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sections (
	    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    course_id  BIGINT UNSIGNED NOT NULL,
	    semester   VARCHAR(16)  NOT NULL,
	    capacity   INT UNSIGNED NOT NULL,
	    enrolled   INT UNSIGNED NOT NULL DEFAULT 0,
	    version    BIGINT UNSIGNED NOT NULL DEFAULT 0,
	    schedule   VARCHAR(64)  NOT NULL DEFAULT '',
	    room       VARCHAR(32)  NOT NULL DEFAULT '',
	    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    KEY idx_sections_course (course_id),
	    KEY idx_sections_semester (semester),
	    CONSTRAINT fk_sections_course FOREIGN KEY (course_id) REFERENCES courses (id),
	    CONSTRAINT chk_sections_enrolled CHECK (enrolled <= capacity)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS enrollments (
	    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    student_id  BIGINT UNSIGNED NOT NULL,
	    section_id  BIGINT UNSIGNED NOT NULL,
	    status      ENUM('ACTIVE','DROPPED') NOT NULL DEFAULT 'ACTIVE',
	    enrolled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    dropped_at  DATETIME NULL DEFAULT NULL,
	    PRIMARY KEY (id),
	    KEY idx_enrollments_student (student_id, status),
	    KEY idx_enrollments_section (section_id, status),
	    CONSTRAINT fk_enrollments_section FOREIGN KEY (section_id) REFERENCES sections (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS waitlist_entries (
	    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    student_id  BIGINT UNSIGNED NOT NULL,
	    section_id  BIGINT UNSIGNED NOT NULL,
	    position    BIGINT UNSIGNED NOT NULL,
	    status      ENUM('WAITING','PROMOTED','WITHDRAWN','PROMOTION_FAILED') NOT NULL DEFAULT 'WAITING',
	    joined_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    resolved_at DATETIME NULL DEFAULT NULL,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_waitlist_section_position (section_id, position),
	    KEY idx_waitlist_section_status (section_id, status, position),
	    CONSTRAINT fk_waitlist_section FOREIGN KEY (section_id) REFERENCES sections (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema when it does not exist.  It runs each
// statement on its own so a failure reports the offending table.
func (s *Store) Migrate(ctx context.Context) error {
	for i, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
