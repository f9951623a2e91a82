package main

import (
	"log"
	"os"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/achievement"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/mastery"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	core.InitConf()

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	masterySvc, err := mastery.NewService(sqlxrepos.NewMasteryRepository(db), mastery.DefaultConfig())
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:             db.DB,
		usrRepo:        sqlxrepos.NewUserRepository(db),
		schoolSvc:      school.NewService(sqlxrepos.NewSchoolRepository(db)),
		attendanceSvc:  attendance.NewService(sqlxrepos.NewAttendanceRepository(db)),
		billingSvc:     billing.NewService(sqlxrepos.NewBillingRepository(db)),
		achievementSvc: achievement.NewService(sqlxrepos.NewAchievementRepository(db)),
		masterySvc:     masterySvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
