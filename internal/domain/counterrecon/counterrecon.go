// Package counterrecon implements the pure drift-detection half of Counter
// Reconciliation: comparing authoritative counts recomputed
// from source tables against the denormalized counters and deciding which
// rows need correcting. All I/O (the source-table recount queries and the
// CAS overwrite) lives in internal/service/counterrecon.
package counterrecon

// PostCounts mirrors the denormalized per-post counters.
type PostCounts struct {
	Runs     int64
	Likes    int64
	Comments int64
	Remixes  int64
}

// UserCounts mirrors the denormalized per-user counters. Remixes counts the
// remix edges whose child capsule the user owns: a remix is credited to the
// remixer, not to the owner of the capsule being remixed.
type UserCounts struct {
	Runs      int64
	Followers int64
	Following int64
	Remixes   int64
}

// PostDrift is one post whose authoritative recount disagrees with its
// stored denormalized counters.
type PostDrift struct {
	PostID     string
	Stored     PostCounts
	Authoritative PostCounts
}

// UserDrift is one user whose authoritative recount disagrees with its
// stored denormalized counters.
type UserDrift struct {
	UserID        string
	Stored        UserCounts
	Authoritative UserCounts
}

// DetectPostDrift compares stored against authoritative and reports a
// PostDrift when they disagree. Pure and unit-testable.
func DetectPostDrift(postID string, stored, authoritative PostCounts) (PostDrift, bool) {
	if stored == authoritative {
		return PostDrift{}, false
	}

	return PostDrift{PostID: postID, Stored: stored, Authoritative: authoritative}, true
}

// DetectUserDrift compares stored against authoritative and reports a
// UserDrift when they disagree.
func DetectUserDrift(userID string, stored, authoritative UserCounts) (UserDrift, bool) {
	if stored == authoritative {
		return UserDrift{}, false
	}

	return UserDrift{UserID: userID, Stored: stored, Authoritative: authoritative}, true
}
