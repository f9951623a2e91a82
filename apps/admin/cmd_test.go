package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/achievement"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/mastery"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	core.Conf = &core.Config{TestMode: true, AppName: "Shule"}

	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)

	masterySvc, err := mastery.NewService(inmemdb.NewMasteryRepository(db), mastery.DefaultConfig())
	if err != nil {
		t.Fatalf("setting up mastery service: %v", err)
	}

	return &commandLine{
		usrRepo:        usrRepo,
		schoolSvc:      school.NewService(inmemdb.NewSchoolRepository(db)),
		attendanceSvc:  attendance.NewService(inmemdb.NewAttendanceRepository(db)),
		billingSvc:     billing.NewService(inmemdb.NewBillingRepository(db)),
		achievementSvc: achievement.NewService(inmemdb.NewAchievementRepository(db)),
		masterySvc:     masterySvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME argument")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create requires a NAME argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "topic", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "headmaster"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-name", "Head Master", "-username", "headmaster", "-email", "head@test.cd", "-admin"}, extra: extra{pwd: "S3cret!pwd"}},
		{name: "update existing", args: []string{"adduser", "-username", "headmaster", "-email", "head@test.cd"}, extra: extra{pwd: "Newer!pwd1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "headmaster"})
			if err != nil {
				t.Fatalf("GetUser() failed, %v", err)
			}
			if !usr.Active() {
				t.Error("user should be active")
			}
			if err = usr.CheckPassword(tt.extra.(extra).pwd); err != nil {
				t.Errorf("CheckPassword() failed, %v", err)
			}
		})
	}

	// only the first run granted all roles; the update must keep them
	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "headmaster"})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if len(usr.Roles) != len(user.AllRoles) {
		t.Errorf("roles = %v, want all roles", usr.Roles)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := user.User{Name: "User", Username: "awe", Email: "awe@test.cd"}
	usr.SetActive(true)
	if err := usr.SetPassword("mdr"); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	if err := cli.run([]string{"admin", "seed", "-teachers", "2", "-students", "6"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}

	users, err := usrRepo.QueryUsers(ctx, nil)
	if err != nil {
		t.Fatalf("QueryUsers() failed, %v", err)
	}
	if len(users) != 8 {
		t.Errorf("got %d users; want 8", len(users))
	}

	campuses, err := cli.schoolSvc.QueryCampuses(ctx)
	if err != nil {
		t.Fatalf("QueryCampuses() failed, %v", err)
	}
	if len(campuses) != 1 {
		t.Fatalf("got %d campuses; want 1", len(campuses))
	}
	classes, err := cli.schoolSvc.QueryClasses(ctx, nil)
	if err != nil {
		t.Fatalf("QueryClasses() failed, %v", err)
	}
	if len(classes) != 3 {
		t.Errorf("got %d classes; want 3", len(classes))
	}

	for _, usr := range users {
		if !usr.IsStudent() {
			continue
		}

		invoices, err := cli.billingSvc.StudentInvoices(ctx, usr.ID)
		if err != nil {
			t.Fatalf("StudentInvoices() failed, %v", err)
		}
		if len(invoices) != 1 {
			t.Errorf("student %s: got %d invoices; want 1", usr.Username, len(invoices))
		}

		sum, err := cli.attendanceSvc.StudentSummary(ctx, usr.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("StudentSummary() failed, %v", err)
		}
		if sum.Total != 5 {
			t.Errorf("student %s: got %d attendance days; want 5", usr.Username, sum.Total)
		}

		msum, err := cli.masterySvc.StudentSummary(ctx, usr.ID)
		if err != nil {
			t.Fatalf("mastery StudentSummary() failed, %v", err)
		}
		if len(msum.Topics) != 6 {
			t.Errorf("student %s: got %d assessed topics; want 6", usr.Username, len(msum.Topics))
		}
	}
}
