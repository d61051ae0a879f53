package domain

import "errors"

var (
	ErrAuthenticationRequired = errors.New("not authenticated")
	ErrRefreshTokenRevoked    = errors.New("refresh token already used or revoked")
	ErrStoreRead              = errors.New("failed to read from store")
	ErrStoreWrite             = errors.New("failed to write to store")
	ErrIntegrityViolation     = errors.New("vote aggregate integrity violation")

	ErrPollNotFound  = errors.New("poll not found")
	ErrInvalidPollID = errors.New("invalid poll id")
	ErrInvalidPoll   = errors.New("invalid poll")
	ErrInvalidSlot   = errors.New("invalid slot for this poll")
	ErrNotPollOwner  = errors.New("only the poll owner can do this")
	ErrPollNotOpen   = errors.New("poll is not open for voting")

	ErrToggleInFlight    = errors.New("a vote on this slot is already being processed")
	ErrSessionSuperseded = errors.New("poll session moved on before the result arrived")
	ErrNoActivePoll      = errors.New("no poll is active in this session")

	ErrAlreadyVoted   = errors.New("user has already voted on this slot")
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyMember  = errors.New("user is already a member of this poll")
	ErrMemberNotFound = errors.New("member not found")
)
