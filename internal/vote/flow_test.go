package vote_test

import (
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/presence"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/internal/vote"
)

// In-memory poll repository for the composed flow specs. Unlike
// mockPollResolver it backs the real poll service, so tenant scope and
// visibility run for real.
type stubPollRepository struct {
	polls       map[int64]*poll.Poll
	options     map[int64][]*poll.Option
	userInvites map[voteKey]bool
	deptInvites map[voteKey]bool
}

func newStubPollRepository() *stubPollRepository {
	return &stubPollRepository{
		polls:       make(map[int64]*poll.Poll),
		options:     make(map[int64][]*poll.Option),
		userInvites: make(map[voteKey]bool),
		deptInvites: make(map[voteKey]bool),
	}
}

func (s *stubPollRepository) Create(p *poll.Poll) error {
	s.polls[p.ID] = p
	return nil
}

func (s *stubPollRepository) GetByID(id int64) (*poll.Poll, error) {
	p, ok := s.polls[id]
	if !ok {
		return nil, errPollMissing
	}
	return p, nil
}

func (s *stubPollRepository) UpdateStatus(id int64, status poll.Status) error {
	if p, ok := s.polls[id]; ok {
		p.Status = status
	}
	return nil
}

func (s *stubPollRepository) GetOption(pollID, optionID int64) (*poll.Option, error) {
	for _, opt := range s.options[pollID] {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return nil, errOptionMissing
}

func (s *stubPollRepository) ListOptions(pollID int64) ([]*poll.Option, error) {
	return s.options[pollID], nil
}

func (s *stubPollRepository) InviteUser(pollID, userID, invitedBy int64) error {
	s.userInvites[voteKey{pollID, userID}] = true
	return nil
}

func (s *stubPollRepository) RevokeUserInvitation(pollID, userID int64) error {
	delete(s.userInvites, voteKey{pollID, userID})
	return nil
}

func (s *stubPollRepository) InviteDepartment(pollID, departmentID, invitedBy int64) error {
	s.deptInvites[voteKey{pollID, departmentID}] = true
	return nil
}

func (s *stubPollRepository) RevokeDepartmentInvitation(pollID, departmentID int64) error {
	delete(s.deptInvites, voteKey{pollID, departmentID})
	return nil
}

func (s *stubPollRepository) IsUserDirectlyInvited(pollID, userID int64) (bool, error) {
	return s.userInvites[voteKey{pollID, userID}], nil
}

func (s *stubPollRepository) IsAnyDepartmentInvited(pollID int64, departmentIDs []int64) (bool, error) {
	for _, deptID := range departmentIDs {
		if s.deptInvites[voteKey{pollID, deptID}] {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubPollRepository) ListInvitedUsers(pollID int64) ([]*user.User, error) {
	return nil, nil
}

var (
	errPollMissing   = errors.New("poll not found")
	errOptionMissing = errors.New("option not found")
)

type stubMembershipIndex struct {
	memberships map[int64][]int64
}

func (s *stubMembershipIndex) ListUserDepartmentIDs(userID int64) ([]int64, error) {
	return s.memberships[userID], nil
}

// In-memory token repository mirroring the transactional semantics of the
// real one: rotation deactivates, reissue replaces.
type stubTokenRepository struct {
	qrByPoll  map[int64]*presence.PollQrToken
	qrByValue map[string]*presence.PollQrToken
	access    map[voteKey]*presence.VotingAccessToken
	nextID    int64
}

func newStubTokenRepository() *stubTokenRepository {
	return &stubTokenRepository{
		qrByPoll:  make(map[int64]*presence.PollQrToken),
		qrByValue: make(map[string]*presence.PollQrToken),
		access:    make(map[voteKey]*presence.VotingAccessToken),
		nextID:    1,
	}
}

func (s *stubTokenRepository) RotateQrToken(t *presence.PollQrToken) error {
	if prev, ok := s.qrByPoll[t.PollID]; ok {
		prev.IsActive = false
	}
	t.ID = s.nextID
	s.nextID++
	s.qrByPoll[t.PollID] = t
	s.qrByValue[t.Token] = t
	return nil
}

func (s *stubTokenRepository) GetActiveQrToken(pollID int64) (*presence.PollQrToken, error) {
	t, ok := s.qrByPoll[pollID]
	if !ok || !t.IsActive {
		return nil, nil
	}
	return t, nil
}

func (s *stubTokenRepository) FindScannableQrToken(token string) (*presence.PollQrToken, error) {
	t, ok := s.qrByValue[token]
	if !ok || !t.IsActive {
		return nil, nil
	}
	return t, nil
}

func (s *stubTokenRepository) ReplaceAccessToken(t *presence.VotingAccessToken) error {
	t.ID = s.nextID
	s.nextID++
	s.access[voteKey{t.PollID, t.UserID}] = t
	return nil
}

func (s *stubTokenRepository) GetAccessToken(pollID, userID int64) (*presence.VotingAccessToken, error) {
	t, ok := s.access[voteKey{pollID, userID}]
	if !ok {
		return nil, nil
	}
	return t, nil
}

// These specs wire the real poll, presence, and vote services together over
// in-memory storage, so a cast vote carries the verification type the
// presence policy actually decided, not a stubbed one.
var _ = Describe("Voting flow", func() {
	var (
		voteSvc     *vote.Service
		presenceSvc *presence.Service
		pollSvc     *poll.Service
		voteRepo    *mockVoteRepository
		pollRepo    *stubPollRepository
		tokenRepo   *stubTokenRepository

		hybridPoll *poll.Poll
		onSite     *user.User
		remote     *user.User
	)

	const acmeID int64 = 7

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)

		pollRepo = newStubPollRepository()
		tokenRepo = newStubTokenRepository()
		voteRepo = newMockVoteRepository()

		pollSvc = poll.NewService(pollRepo, &stubMembershipIndex{memberships: make(map[int64][]int64)}, bus, logger)
		presenceSvc = presence.NewService(tokenRepo, pollSvc, bus, logger, 2*time.Minute, 24*time.Hour)

		org := acmeID
		onSite = &user.User{ID: 201, Role: user.RoleUser, OrganizationID: &org, IsActive: true}
		remote = &user.User{ID: 202, Role: user.RoleUser, OrganizationID: &org, IsActive: true}
		directory := &mockUserDirectory{users: map[int64]*user.User{201: onSite, 202: remote}}

		voteSvc = vote.NewService(voteRepo, pollSvc, presenceSvc, directory, bus, logger)

		hybridPoll = &poll.Poll{
			ID:               1,
			Question:         "Where should the offsite be?",
			Status:           poll.StatusActive,
			Visibility:       poll.VisibilityPublic,
			VotingAccessMode: poll.AccessModeHybrid,
			OrganizationID:   &org,
		}
		Expect(pollRepo.Create(hybridPoll)).To(Succeed())
		pollRepo.options[1] = []*poll.Option{
			{ID: 10, PollID: 1, Text: "Mountains"},
			{ID: 11, PollID: 1, Text: "Beach"},
		}
	})

	It("should record an on-premise vote after a QR scan and a remote vote without one", func() {
		// Given: the organizer displays a QR code and one voter scans it
		qr, err := presenceSvc.GenerateQrToken(hybridPoll, 0)
		Expect(err).ToNot(HaveOccurred())

		scan, err := presenceSvc.VerifyQrToken(qr.Token, onSite)
		Expect(err).ToNot(HaveOccurred())
		Expect(scan.Success).To(BeTrue())
		Expect(scan.Message).To(Equal(presence.MsgPresenceVerified))

		// When: the scanned voter and an unscanned voter both cast
		onSiteVote, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, onSite, "192.168.1.10")
		Expect(err).ToNot(HaveOccurred())

		remoteVote, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 11}, remote, "203.0.113.5")
		Expect(err).ToNot(HaveOccurred())

		// Then: each vote carries the verification type the policy decided
		Expect(onSiteVote.VerificationType).To(Equal(presence.VerificationOnPremise))
		Expect(remoteVote.VerificationType).To(Equal(presence.VerificationRemote))

		counts, err := voteSvc.GetResults(1)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts).To(HaveLen(2))
	})

	It("should reject a second cast by a verified voter", func() {
		// Given
		qr, err := presenceSvc.GenerateQrToken(hybridPoll, 0)
		Expect(err).ToNot(HaveOccurred())
		_, err = presenceSvc.VerifyQrToken(qr.Token, onSite)
		Expect(err).ToNot(HaveOccurred())
		_, err = voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, onSite, "")
		Expect(err).ToNot(HaveOccurred())

		// When
		v, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 11}, onSite, "")

		// Then
		Expect(v).To(BeNil())
		fieldErr := fieldError(err)
		Expect(fieldErr.Code).To(Equal(string(internal.ErrCodeAlreadyVoted)))
		Expect(fieldErr.Message).To(Equal("This user has already voted in this poll."))
	})

	It("should require a scan before voting in an on-premise-only poll", func() {
		// Given
		hybridPoll.VotingAccessMode = poll.AccessModeOnPremiseOnly

		// When: casting without scanning
		v, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, onSite, "")

		// Then
		Expect(v).To(BeNil())
		Expect(fieldError(err).Message).To(Equal(presence.MsgOnSiteRequired))

		// And: scanning unlocks the cast
		qr, err := presenceSvc.GenerateQrToken(hybridPoll, 0)
		Expect(err).ToNot(HaveOccurred())
		scan, err := presenceSvc.VerifyQrToken(qr.Token, onSite)
		Expect(err).ToNot(HaveOccurred())
		Expect(scan.Success).To(BeTrue())

		cast, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, onSite, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(cast.VerificationType).To(Equal(presence.VerificationOnPremise))
	})

	It("should hide another tenant's poll from the voter entirely", func() {
		// Given
		otherOrg := int64(99)
		hybridPoll.OrganizationID = &otherOrg

		// When
		v, err := voteSvc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, onSite, "")

		// Then
		Expect(v).To(BeNil())
		Expect(fieldError(err).Message).To(Equal(presence.MsgPollNotVotable))
	})
})
