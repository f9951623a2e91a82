package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/volatiletech/randomize"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/shule/core/achievement"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/mastery"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var (
	seedNameTypes = map[string]string{"First": "text", "Last": "text"}

	seedSubjects = map[string][]string{
		"Mathematics": {"Fractions", "Geometry"},
		"English":     {"Reading Comprehension", "Grammar"},
		"Science":     {"Plants", "The Water Cycle"},
	}

	seedStatuses = []attendance.Status{
		attendance.StatusPresent,
		attendance.StatusPresent,
		attendance.StatusPresent,
		attendance.StatusLate,
		attendance.StatusAbsent,
	}
)

// seed loads a synthetic campus with classes, topics, users, enrollments,
// fees, invoices, attendance, assessments and achievements. Dev only.
func (cli *commandLine) seed(nTeachers, nStudents int) error {
	ctx := context.Background()
	seed := randomize.NewSeed()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	newName := func() (string, error) {
		var n struct{ First, Last string }
		if err := randomize.Struct(seed, &n, seedNameTypes, false); err != nil {
			return "", err
		}
		return strmangle.TitleCase(n.First) + " " + strmangle.TitleCase(n.Last), nil
	}
	newUser := func(prefix string, i int, role string) (user.User, error) {
		name, err := newName()
		if err != nil {
			return user.User{}, err
		}
		uname := fmt.Sprintf("%s_%s", prefix, strmangle.Identifier(i))
		usr := user.User{
			Name:     name,
			Username: uname,
			Email:    uname + "@shule.local",
			Roles:    []string{role},
		}
		usr.SetActive(true)
		if err = usr.SetPassword("LocalDev#1"); err != nil {
			return user.User{}, err
		}
		return cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	}

	teachers := make([]user.User, 0, nTeachers)
	for i := 0; i < nTeachers; i++ {
		usr, err := newUser("teacher", i, user.RoleTeacher)
		if err != nil {
			return err
		}
		teachers = append(teachers, usr)
	}
	students := make([]user.User, 0, nStudents)
	for i := 0; i < nStudents; i++ {
		usr, err := newUser("student", i, user.RoleStudent)
		if err != nil {
			return err
		}
		students = append(students, usr)
	}

	campus, err := cli.schoolSvc.CreateCampus(ctx, school.NewCampus{Name: "Main Campus", Address: "12 Avenue de l'École"})
	if err != nil {
		return err
	}

	year := academicYear(time.Now())
	classes := make([]school.Class, 0, 3)
	topicsByClass := make(map[string][]school.Topic)
	for i, grade := range []int{4, 5, 6} {
		class, err := cli.schoolSvc.CreateClass(ctx, school.NewClass{
			CampusID:      campus.ID,
			Name:          fmt.Sprintf("P%d A", grade),
			GradeLevel:    grade,
			HomeTeacherID: teachers[i%len(teachers)].ID,
			AcademicYear:  year,
		})
		if err != nil {
			return err
		}
		classes = append(classes, class)

		for subject, names := range seedSubjects {
			for _, name := range names {
				topic, err := cli.schoolSvc.CreateTopic(ctx, school.NewTopic{ClassID: class.ID, Subject: subject, Name: name})
				if err != nil {
					return err
				}
				topicsByClass[class.ID] = append(topicsByClass[class.ID], topic)
			}
		}

		if _, err = cli.billingSvc.CreateFeeStructure(ctx, billing.NewFeeStructure{
			CampusID:   campus.ID,
			GradeLevel: grade,
			Name:       fmt.Sprintf("Tuition P%d", grade),
			Amount:     float64(300 + 50*grade),
			Term:       "T1",
		}); err != nil {
			return err
		}
	}

	// round-robin enrollment
	classOf := make(map[string]school.Class, len(students))
	for i, student := range students {
		class := classes[i%len(classes)]
		if _, err = cli.schoolSvc.Enroll(ctx, class.ID, student.ID); err != nil {
			return err
		}
		classOf[student.ID] = class
	}

	// one invoice per student, from their grade's fee structure
	fees, err := cli.billingSvc.QueryFeeStructures(ctx, campus.ID)
	if err != nil {
		return err
	}
	feeByGrade := make(map[int]billing.FeeStructure, len(fees))
	for _, fee := range fees {
		feeByGrade[fee.GradeLevel] = fee
	}
	dueAt := time.Now().UTC().Add(30 * 24 * time.Hour)
	for _, student := range students {
		if _, err = cli.billingSvc.IssueInvoice(ctx, billing.NewInvoice{
			StudentID:      student.ID,
			FeeStructureID: feeByGrade[classOf[student.ID].GradeLevel].ID,
			DueAt:          dueAt,
		}); err != nil {
			return err
		}
	}

	// a week's worth of registers
	for day := 1; day <= 5; day++ {
		date := time.Now().UTC().AddDate(0, 0, -day)
		for _, class := range classes {
			var entries []attendance.SheetEntry
			for _, student := range students {
				if classOf[student.ID].ID != class.ID {
					continue
				}
				entries = append(entries, attendance.SheetEntry{
					StudentID: student.ID,
					Status:    seedStatuses[rng.Intn(len(seedStatuses))],
				})
			}
			if len(entries) == 0 {
				continue
			}
			if _, err = cli.attendanceSvc.RecordSheet(ctx, attendance.NewSheet{
				ClassID:    class.ID,
				Date:       date,
				Entries:    entries,
				RecordedBy: teachers[rng.Intn(len(teachers))].ID,
			}); err != nil {
				return err
			}
		}
	}

	// a few assessments per student
	for _, student := range students {
		for _, topic := range topicsByClass[classOf[student.ID].ID] {
			scores := make(map[mastery.Level]float64, len(mastery.Levels))
			for _, lvl := range mastery.Levels {
				scores[lvl] = 40 + rng.Float64()*60
			}
			if _, err = cli.masterySvc.RecordAssessment(ctx, mastery.AssessmentResult{
				StudentID:   student.ID,
				TopicID:     topic.ID,
				LevelScores: scores,
			}); err != nil {
				return err
			}
		}
	}

	// achievements, awarded to a random handful
	for _, na := range []achievement.NewAchievement{
		{Code: "perfect_attendance", Name: "Perfect Attendance", Description: "No absence for a full term.", Points: 50},
		{Code: "honor_roll", Name: "Honor Roll", Description: "Top of the class.", Points: 100},
	} {
		ach, err := cli.achievementSvc.Create(ctx, na)
		if err != nil {
			return err
		}
		for _, student := range students {
			if rng.Intn(4) != 0 {
				continue
			}
			if _, err = cli.achievementSvc.Award(ctx, achievement.NewAward{
				AchievementID: ach.ID,
				StudentID:     student.ID,
				AwardedBy:     teachers[rng.Intn(len(teachers))].ID,
			}); err != nil {
				return err
			}
		}
	}

	fmt.Printf("seeded %d teachers, %d students, %d classes on campus %q\n", len(teachers), len(students), len(classes), campus.Name)
	return nil
}

// academicYear formats the school year containing t, e.g. "2026-2027".
// The year turns over in September.
func academicYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.September {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}
