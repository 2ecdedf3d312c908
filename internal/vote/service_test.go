package vote_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/presence"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/internal/vote"
)

func TestVoteService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "VoteService Suite")
}

type voteKey struct {
	pollID int64
	userID int64
}

// Mock repository for testing
type mockVoteRepository struct {
	votes       map[voteKey]*vote.Vote
	proxies     map[voteKey]*vote.PollProxy
	createError error
	nextID      int64
}

func newMockVoteRepository() *mockVoteRepository {
	return &mockVoteRepository{
		votes:   make(map[voteKey]*vote.Vote),
		proxies: make(map[voteKey]*vote.PollProxy),
		nextID:  1,
	}
}

func (m *mockVoteRepository) Create(v *vote.Vote) error {
	if m.createError != nil {
		return m.createError
	}
	key := voteKey{v.PollID, v.UserID}
	if _, exists := m.votes[key]; exists {
		return vote.ErrDuplicateVote
	}
	v.ID = m.nextID
	m.nextID++
	m.votes[key] = v
	return nil
}

func (m *mockVoteRepository) GetByPollAndUser(pollID, userID int64) (*vote.Vote, error) {
	v, ok := m.votes[voteKey{pollID, userID}]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (m *mockVoteRepository) CountByOption(pollID int64) ([]vote.OptionCount, error) {
	counts := make(map[int64]int64)
	for _, v := range m.votes {
		if v.PollID == pollID {
			counts[v.PollOptionID]++
		}
	}
	result := make([]vote.OptionCount, 0, len(counts))
	for optionID, count := range counts {
		result = append(result, vote.OptionCount{PollOptionID: optionID, Count: count})
	}
	return result, nil
}

func (m *mockVoteRepository) GetProxy(pollID, principalID int64) (*vote.PollProxy, error) {
	p, ok := m.proxies[voteKey{pollID, principalID}]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (m *mockVoteRepository) CreateProxy(p *vote.PollProxy) error {
	p.ID = m.nextID
	m.nextID++
	m.proxies[voteKey{p.PollID, p.UserID}] = p
	return nil
}

func (m *mockVoteRepository) DeleteProxy(pollID, principalID int64) error {
	delete(m.proxies, voteKey{pollID, principalID})
	return nil
}

type mockPollResolver struct {
	polls   map[int64]*poll.Poll
	options map[int64][]*poll.Option
	votable bool
}

func (m *mockPollResolver) GetByID(id int64) (*poll.Poll, error) {
	p, ok := m.polls[id]
	if !ok {
		return nil, errors.New("poll not found")
	}
	return p, nil
}

func (m *mockPollResolver) CanBeVotedOnBy(p *poll.Poll, u *user.User) (bool, error) {
	return m.votable, nil
}

func (m *mockPollResolver) GetOption(pollID, optionID int64) (*poll.Option, error) {
	for _, opt := range m.options[pollID] {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return nil, internal.NewValidationFieldError("option", "Selected option does not belong to this poll", internal.ErrCodeInvalidOption)
}

type mockEligibilityChecker struct {
	decision *presence.EligibilityDecision
}

func (m *mockEligibilityChecker) CheckVotingEligibility(p *poll.Poll, u *user.User) (*presence.EligibilityDecision, error) {
	return m.decision, nil
}

type mockUserDirectory struct {
	users map[int64]*user.User
}

func (m *mockUserDirectory) GetUserByID(userID int64) (*user.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func fieldError(err error) internal.ValidationError {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	Expect(details.Errors).ToNot(BeEmpty())
	return details.Errors[0]
}

var _ = Describe("VoteService", func() {
	var (
		svc         *vote.Service
		mockRepo    *mockVoteRepository
		polls       *mockPollResolver
		eligibility *mockEligibilityChecker
		users       *mockUserDirectory
		actor       *user.User
		logger      *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockVoteRepository()
		polls = &mockPollResolver{
			polls:   make(map[int64]*poll.Poll),
			options: make(map[int64][]*poll.Option),
			votable: true,
		}
		polls.polls[1] = &poll.Poll{ID: 1, Status: poll.StatusActive, VotingAccessMode: poll.AccessModeHybrid}
		polls.options[1] = []*poll.Option{{ID: 10, PollID: 1, Text: "Yes"}, {ID: 11, PollID: 1, Text: "No"}}

		eligibility = &mockEligibilityChecker{
			decision: &presence.EligibilityDecision{CanVote: true, VerificationType: presence.VerificationRemote},
		}
		actor = &user.User{ID: 100, Role: user.RoleUser}
		users = &mockUserDirectory{users: map[int64]*user.User{100: actor}}

		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		svc = vote.NewService(mockRepo, polls, eligibility, users, bus, logger)
	})

	Describe("CastVote", func() {
		Context("when the request is valid", func() {
			It("should record the vote with the decided verification type", func() {
				// Given
				dto := vote.CastVoteDTO{PollID: 1, OptionID: 10}

				// When
				v, err := svc.CastVote(dto, actor, "10.0.0.1")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(v.ID).To(BeNumerically(">", 0))
				Expect(v.UserID).To(Equal(actor.ID))
				Expect(v.ProxyUserID).To(BeNil())
				Expect(v.VerificationType).To(Equal(presence.VerificationRemote))
				Expect(v.IPAddress).To(Equal("10.0.0.1"))
			})
		})

		Context("when the poll does not exist", func() {
			It("should return poll not found", func() {
				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 999, OptionID: 10}, actor, "")

				// Then
				Expect(v).To(BeNil())
				Expect(err).To(Equal(internal.ErrPollNotFound))
			})
		})

		Context("when the option belongs to another poll", func() {
			It("should return a field error on option", func() {
				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 999}, actor, "")

				// Then
				Expect(v).To(BeNil())
				Expect(fieldError(err).Field).To(Equal("option"))
			})
		})

		Context("when on_behalf_of names an unknown user", func() {
			It("should return a field error on on_behalf_of", func() {
				// Given
				other := int64(555)

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10, OnBehalfOf: &other}, actor, "")

				// Then
				Expect(v).To(BeNil())
				fe := fieldError(err)
				Expect(fe.Field).To(Equal("on_behalf_of"))
				Expect(fe.Code).To(Equal(string(internal.ErrCodeUserNotFound)))
			})
		})

		Context("when the poll is not addressable by the principal", func() {
			It("should reject with the not-votable message", func() {
				// Given
				polls.votable = false

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")

				// Then
				Expect(v).To(BeNil())
				fe := fieldError(err)
				Expect(fe.Field).To(Equal("poll"))
				Expect(fe.Message).To(Equal(presence.MsgPollNotVotable))
			})
		})

		Context("when the poll is not active", func() {
			It("should reject with the not-active message", func() {
				// Given
				polls.polls[1].Status = poll.StatusEnded

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")

				// Then
				Expect(v).To(BeNil())
				Expect(fieldError(err).Message).To(Equal(presence.MsgPollNotActive))
			})
		})

		Context("when voting on behalf of another user", func() {
			var principal *user.User

			BeforeEach(func() {
				principal = &user.User{ID: 200, Role: user.RoleUser}
				users.users[200] = principal
			})

			It("should reject an actor without proxy authority", func() {
				// Given
				onBehalfOf := principal.ID

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10, OnBehalfOf: &onBehalfOf}, actor, "")

				// Then
				Expect(v).To(BeNil())
				fe := fieldError(err)
				Expect(fe.Field).To(Equal("on_behalf_of"))
				Expect(fe.Code).To(Equal(string(internal.ErrCodeInvalidProxy)))
			})

			It("should reject an actor holding authority for a different principal", func() {
				// Given
				mockRepo.proxies[voteKey{1, 200}] = &vote.PollProxy{PollID: 1, UserID: 200, ProxyUserID: 999}
				onBehalfOf := principal.ID

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10, OnBehalfOf: &onBehalfOf}, actor, "")

				// Then
				Expect(v).To(BeNil())
				Expect(fieldError(err).Code).To(Equal(string(internal.ErrCodeInvalidProxy)))
			})

			It("should record the vote under the principal with the proxy noted", func() {
				// Given
				mockRepo.proxies[voteKey{1, 200}] = &vote.PollProxy{PollID: 1, UserID: 200, ProxyUserID: actor.ID}
				onBehalfOf := principal.ID

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10, OnBehalfOf: &onBehalfOf}, actor, "")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(v.UserID).To(Equal(principal.ID))
				Expect(v.ProxyUserID).ToNot(BeNil())
				Expect(*v.ProxyUserID).To(Equal(actor.ID))
			})

			It("should treat on_behalf_of naming the actor as a direct vote", func() {
				// Given
				self := actor.ID

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10, OnBehalfOf: &self}, actor, "")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(v.UserID).To(Equal(actor.ID))
				Expect(v.ProxyUserID).To(BeNil())
			})
		})

		Context("when the principal has already voted", func() {
			It("should reject the second vote", func() {
				// Given
				_, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")
				Expect(err).ToNot(HaveOccurred())

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 11}, actor, "")

				// Then
				Expect(v).To(BeNil())
				fe := fieldError(err)
				Expect(fe.Code).To(Equal(string(internal.ErrCodeAlreadyVoted)))
				Expect(fe.Message).To(Equal("This user has already voted in this poll."))
			})

			It("should map a racing duplicate insert to the same rejection", func() {
				// Given
				mockRepo.createError = vote.ErrDuplicateVote

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")

				// Then
				Expect(v).To(BeNil())
				Expect(fieldError(err).Code).To(Equal(string(internal.ErrCodeAlreadyVoted)))
			})
		})

		Context("when the eligibility policy denies", func() {
			It("should surface the policy reason", func() {
				// Given
				eligibility.decision = &presence.EligibilityDecision{
					CanVote: false,
					Reason:  presence.MsgOnSiteRequired,
				}

				// When
				v, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")

				// Then
				Expect(v).To(BeNil())
				fe := fieldError(err)
				Expect(fe.Message).To(Equal(presence.MsgOnSiteRequired))
				Expect(fe.Code).To(Equal(string(internal.ErrCodeVerificationUnmet)))
			})
		})
	})

	Describe("HasVoted", func() {
		It("should report an existing vote", func() {
			// Given
			_, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")
			Expect(err).ToNot(HaveOccurred())

			// When
			voted, err := svc.HasVoted(1, actor.ID)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(voted).To(BeTrue())
		})

		It("should report false when no vote exists", func() {
			// When
			voted, err := svc.HasVoted(1, 999)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(voted).To(BeFalse())
		})
	})

	Describe("AssignProxy", func() {
		var p *poll.Poll

		BeforeEach(func() {
			p = polls.polls[1]
			users.users[200] = &user.User{ID: 200}
			users.users[300] = &user.User{ID: 300}
		})

		It("should authorize a proxy for the principal", func() {
			// When
			proxy, err := svc.AssignProxy(p, vote.AssignProxyDTO{UserID: 200, ProxyUserID: 300}, 1)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(proxy.UserID).To(Equal(int64(200)))
			Expect(proxy.ProxyUserID).To(Equal(int64(300)))
		})

		It("should replace an existing assignment for the same principal", func() {
			// Given
			_, err := svc.AssignProxy(p, vote.AssignProxyDTO{UserID: 200, ProxyUserID: 300}, 1)
			Expect(err).ToNot(HaveOccurred())
			users.users[400] = &user.User{ID: 400}

			// When
			_, err = svc.AssignProxy(p, vote.AssignProxyDTO{UserID: 200, ProxyUserID: 400}, 1)

			// Then
			Expect(err).ToNot(HaveOccurred())
			current, err := mockRepo.GetProxy(p.ID, 200)
			Expect(err).ToNot(HaveOccurred())
			Expect(current.ProxyUserID).To(Equal(int64(400)))
		})

		It("should reject a user proxying for themselves", func() {
			// When
			proxy, err := svc.AssignProxy(p, vote.AssignProxyDTO{UserID: 200, ProxyUserID: 200}, 1)

			// Then
			Expect(proxy).To(BeNil())
			Expect(fieldError(err).Code).To(Equal(string(internal.ErrCodeInvalidProxy)))
		})

		It("should reject unknown users", func() {
			// When
			proxy, err := svc.AssignProxy(p, vote.AssignProxyDTO{UserID: 999, ProxyUserID: 300}, 1)

			// Then
			Expect(proxy).To(BeNil())
			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})

	Describe("RevokeProxy", func() {
		It("should be a no-op when no assignment exists", func() {
			// When
			err := svc.RevokeProxy(1, 200)

			// Then
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("GetResults", func() {
		It("should tally votes per option", func() {
			// Given
			_, err := svc.CastVote(vote.CastVoteDTO{PollID: 1, OptionID: 10}, actor, "")
			Expect(err).ToNot(HaveOccurred())

			// When
			results, err := svc.GetResults(1)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].PollOptionID).To(Equal(int64(10)))
			Expect(results[0].Count).To(Equal(int64(1)))
		})

		It("should return poll not found for unknown polls", func() {
			// When
			results, err := svc.GetResults(999)

			// Then
			Expect(results).To(BeNil())
			Expect(err).To(Equal(internal.ErrPollNotFound))
		})
	})
})
