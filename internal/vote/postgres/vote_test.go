package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smuchara/pollstack/internal/presence"
	"github.com/smuchara/pollstack/internal/vote"
)

func TestVoteRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "VoteRepository Suite")
}

type SQLiteVote struct {
	ID               int64     `gorm:"primaryKey"`
	PollID           int64     `gorm:"column:poll_id;not null;uniqueIndex:idx_votes_poll_user"`
	PollOptionID     int64     `gorm:"column:poll_option_id;not null"`
	UserID           int64     `gorm:"column:user_id;not null;uniqueIndex:idx_votes_poll_user"`
	ProxyUserID      *int64    `gorm:"column:proxy_user_id"`
	IPAddress        string    `gorm:"column:ip_address"`
	VerificationType string    `gorm:"column:verification_type;not null"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (SQLiteVote) TableName() string {
	return "votes"
}

type SQLitePollOption struct {
	ID        int64     `gorm:"primaryKey"`
	PollID    int64     `gorm:"column:poll_id;not null"`
	Text      string    `gorm:"column:text;not null"`
	SortOrder int       `gorm:"column:sort_order;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (SQLitePollOption) TableName() string {
	return "poll_options"
}

type SQLitePollProxy struct {
	ID          int64     `gorm:"primaryKey"`
	PollID      int64     `gorm:"column:poll_id;not null;uniqueIndex:idx_poll_proxies_poll_user"`
	UserID      int64     `gorm:"column:user_id;not null;uniqueIndex:idx_poll_proxies_poll_user"`
	ProxyUserID int64     `gorm:"column:proxy_user_id;not null"`
	CreatedBy   int64     `gorm:"column:created_by;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (SQLitePollProxy) TableName() string {
	return "poll_proxies"
}

var _ = Describe("VoteRepository", func() {
	var (
		db   *gorm.DB
		repo vote.Repository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteVote{}, &SQLitePollOption{}, &SQLitePollProxy{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewVoteRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	newVote := func(pollID, optionID, userID int64) *vote.Vote {
		return &vote.Vote{
			PollID:           pollID,
			PollOptionID:     optionID,
			UserID:           userID,
			VerificationType: presence.VerificationRemote,
			CreatedAt:        time.Now(),
		}
	}

	Describe("Create", func() {
		It("should insert a vote", func() {
			// When
			err := repo.Create(newVote(1, 10, 100))

			// Then
			Expect(err).NotTo(HaveOccurred())

			stored, err := repo.GetByPollAndUser(1, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeNil())
			Expect(stored.PollOptionID).To(Equal(int64(10)))
		})

		It("should translate a duplicate (poll, user) insert to ErrDuplicateVote", func() {
			// Given
			Expect(repo.Create(newVote(1, 10, 100))).To(Succeed())

			// When
			err := repo.Create(newVote(1, 11, 100))

			// Then
			Expect(err).To(MatchError(vote.ErrDuplicateVote))
		})

		It("should allow the same user to vote in different polls", func() {
			// Given
			Expect(repo.Create(newVote(1, 10, 100))).To(Succeed())

			// When
			err := repo.Create(newVote(2, 20, 100))

			// Then
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("GetByPollAndUser", func() {
		It("should return nil without error when no vote exists", func() {
			// When
			stored, err := repo.GetByPollAndUser(1, 100)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeNil())
		})
	})

	Describe("CountByOption", func() {
		It("should tally votes joined with option text, largest first", func() {
			// Given
			Expect(db.Create(&SQLitePollOption{ID: 10, PollID: 1, Text: "Yes"}).Error).NotTo(HaveOccurred())
			Expect(db.Create(&SQLitePollOption{ID: 11, PollID: 1, Text: "No"}).Error).NotTo(HaveOccurred())
			Expect(repo.Create(newVote(1, 10, 100))).To(Succeed())
			Expect(repo.Create(newVote(1, 10, 101))).To(Succeed())
			Expect(repo.Create(newVote(1, 11, 102))).To(Succeed())

			// When
			counts, err := repo.CountByOption(1)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(HaveLen(2))
			Expect(counts[0].PollOptionID).To(Equal(int64(10)))
			Expect(counts[0].OptionText).To(Equal("Yes"))
			Expect(counts[0].Count).To(Equal(int64(2)))
			Expect(counts[1].Count).To(Equal(int64(1)))
		})
	})

	Describe("proxy assignments", func() {
		It("should round-trip a proxy and delete it", func() {
			// Given
			proxy := &vote.PollProxy{PollID: 1, UserID: 100, ProxyUserID: 200, CreatedBy: 1, CreatedAt: time.Now()}
			Expect(repo.CreateProxy(proxy)).To(Succeed())

			// When
			stored, err := repo.GetProxy(1, 100)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ProxyUserID).To(Equal(int64(200)))

			Expect(repo.DeleteProxy(1, 100)).To(Succeed())
			gone, err := repo.GetProxy(1, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(gone).To(BeNil())
		})

		It("should treat deleting a missing proxy as a no-op", func() {
			// When
			err := repo.DeleteProxy(9, 9)

			// Then
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
