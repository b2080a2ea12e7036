package scoring

import (
	"math"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// Trust scoring weights. A fresh account sits at the neutral baseline of 50;
// report accuracy moves it most, false reports pull hardest, and verification
// activity and resource contributions add capped bonuses.
const (
	trustBaseline          = 50.0
	verificationRateWeight = 0.3
	falseReportRateWeight  = 0.5
	verificationsGivenEach = 0.5
	verificationsGivenCap  = 15.0
	upvoteRatioWeight      = 0.2
	resourcesProvidedEach  = 1.0
	resourcesProvidedCap   = 20.0
	neutralRatePercent     = 50.0
)

// ComputeTrust converts a user's aggregated reputation counters into a 0-100
// trust score. Pure function; safe for concurrent use.
func ComputeTrust(rep domain.UserReputation) int {
	totalReports := clampMin(rep.TotalReports, 0)
	verifiedReports := clampMin(rep.VerifiedReports, 0)
	falseReports := clampMin(rep.FalseReports, 0)
	verificationsGiven := clampMin(rep.VerificationsGiven, 0)
	upvotes := clampMin(rep.UpvotesReceived, 0)
	downvotes := clampMin(rep.DownvotesReceived, 0)
	resources := clampMin(rep.ResourcesProvided, 0)

	score := trustBaseline

	// Report accuracy: neutral when the user has no reports yet.
	verificationRate := neutralRatePercent
	falseReportRate := 0.0
	if totalReports > 0 {
		verificationRate = float64(verifiedReports) / float64(totalReports) * 100.0
		falseReportRate = float64(falseReports) / float64(totalReports) * 100.0
	}
	score += (verificationRate - neutralRatePercent) * verificationRateWeight
	score -= falseReportRate * falseReportRateWeight

	score += math.Min(verificationsGivenCap, float64(verificationsGiven)*verificationsGivenEach)

	// Vote reception: neutral when the user has received no votes.
	upvoteRatio := neutralRatePercent
	if upvotes+downvotes > 0 {
		upvoteRatio = float64(upvotes) / float64(upvotes+downvotes) * 100.0
	}
	score += (upvoteRatio - neutralRatePercent) * upvoteRatioWeight

	score += math.Min(resourcesProvidedCap, float64(resources)*resourcesProvidedEach)

	return clampInt(int(math.Round(score)), 0, 100)
}
