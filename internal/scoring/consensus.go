package scoring

import "math"

// Consensus scoring weights. Votes are the most volatile signal, so the net
// vote term saturates quickly; verifications and official confirmation are
// privileged signals with larger capped bonuses; the AI heuristic contributes
// a small linearly scaled term.
const (
	votePointsPerNet       = 5
	voteTermCap            = 100.0
	verificationPointsEach = 10
	verificationTermCap    = 50
	aiTermWeight           = 20.0
	confirmationBonus      = 30
)

// ConsensusInputs holds the current signals for one report. All fields are
// the live counters; consensus is always recomputed from scratch, never
// patched incrementally, so repeated recomputation cannot drift.
type ConsensusInputs struct {
	Upvotes           int
	Downvotes         int
	VerificationCount int
	AIValidationScore *int // 0-100, treated as 0 when absent
	Confirmed         bool
}

// ComputeConsensus converts a report's community signals into a 0-100
// consensus score. Pure function; safe for concurrent use.
func ComputeConsensus(in ConsensusInputs) int {
	upvotes := clampMin(in.Upvotes, 0)
	downvotes := clampMin(in.Downvotes, 0)
	verifications := clampMin(in.VerificationCount, 0)

	voteTerm := clampFloat(float64((upvotes-downvotes)*votePointsPerNet), -voteTermCap, voteTermCap)

	verificationTerm := verifications * verificationPointsEach
	if verificationTerm > verificationTermCap {
		verificationTerm = verificationTermCap
	}

	aiScore := 0
	if in.AIValidationScore != nil {
		aiScore = clampInt(*in.AIValidationScore, 0, 100)
	}
	aiTerm := float64(aiScore) / 100.0 * aiTermWeight

	confirmationTerm := 0
	if in.Confirmed {
		confirmationTerm = confirmationBonus
	}

	total := voteTerm + float64(verificationTerm) + aiTerm + float64(confirmationTerm)
	return clampInt(int(math.Round(total)), 0, 100)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
