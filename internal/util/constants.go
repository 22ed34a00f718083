package util

const DateFormat = "2006-01-02"

// Leaderboard paging.
const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// Attempt history paging.
const (
	DefaultAttemptLimit = 20
	MaxAttemptLimit     = 200
)
