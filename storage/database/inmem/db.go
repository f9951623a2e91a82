// Package inmemdb provides mutex-guarded in-memory repositories,
// used by tests and local experimentation.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/achievement"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/mastery"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users map[string]*user.User

	campuses    map[string]*school.Campus
	classes     map[string]*school.Class
	topics      map[string]*school.Topic
	enrollments map[string]*school.Enrollment // key: classID|studentID

	attendance map[string]*attendance.Record // key: classID|studentID|date

	fees     map[string]*billing.FeeStructure
	invoices map[string]*billing.Invoice
	payments map[string][]billing.Payment // key: invoiceID

	messages   map[string]*messaging.Message
	recipients map[string]*messaging.Recipient // key: messageID|userID

	achievements map[string]*achievement.Achievement
	awards       map[string]*achievement.Award // key: achievementID|studentID

	masteries map[string]*mastery.TopicMastery // key: studentID|topicID
}

func NewDB() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		campuses:     make(map[string]*school.Campus),
		classes:      make(map[string]*school.Class),
		topics:       make(map[string]*school.Topic),
		enrollments:  make(map[string]*school.Enrollment),
		attendance:   make(map[string]*attendance.Record),
		fees:         make(map[string]*billing.FeeStructure),
		invoices:     make(map[string]*billing.Invoice),
		payments:     make(map[string][]billing.Payment),
		messages:     make(map[string]*messaging.Message),
		recipients:   make(map[string]*messaging.Recipient),
		achievements: make(map[string]*achievement.Achievement),
		awards:       make(map[string]*achievement.Award),
		masteries:    make(map[string]*mastery.TopicMastery),
	}
}

func newPK() string { return uuid.New().String() }
