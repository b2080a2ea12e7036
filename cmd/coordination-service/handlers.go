package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/auth"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/events"
)

// setupRoutes configures all HTTP routes
func setupRoutes(app *App) {
	app.Router.HandleFunc("/health", healthHandler(app)).Methods("GET")
	app.Router.HandleFunc("/auth/login", loginHandler()).Methods("POST")

	// Report signals (every mutation triggers a consensus recompute)
	app.Router.HandleFunc("/reports", authMiddleware(createReportHandler(app))).Methods("POST")
	app.Router.HandleFunc("/reports/prioritized", getPrioritizedReportsHandler(app)).Methods("GET")
	app.Router.HandleFunc("/reports/{id}", getReportHandler(app)).Methods("GET")
	app.Router.HandleFunc("/reports/{id}/vote", authMiddleware(voteReportHandler(app))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/verify", requireRole("responder", verifyReportHandler(app))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/confirm", requireRole("responder", confirmReportHandler(app, true))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/unconfirm", requireRole("responder", confirmReportHandler(app, false))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/flag", requireRole("responder", flagReportHandler(app))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/unflag", requireRole("responder", unflagReportHandler(app))).Methods("POST")
	app.Router.HandleFunc("/reports/{id}/ai-score", requireRole("coordinator", aiScoreHandler(app))).Methods("PUT")

	// Reputation
	app.Router.HandleFunc("/users/{id}/trust", authMiddleware(getTrustHandler(app))).Methods("GET")

	// Offers and requests
	app.Router.HandleFunc("/offers", authMiddleware(createOfferHandler(app))).Methods("POST")
	app.Router.HandleFunc("/offers/{id}/status", authMiddleware(advanceOfferHandler(app))).Methods("PATCH")
	app.Router.HandleFunc("/offers/{id}/matches", authMiddleware(getOfferMatchesHandler(app))).Methods("GET")
	app.Router.HandleFunc("/requests", authMiddleware(createRequestHandler(app))).Methods("POST")
	app.Router.HandleFunc("/requests/{id}/status", authMiddleware(advanceRequestHandler(app))).Methods("PATCH")
	app.Router.HandleFunc("/requests/{id}/matches", authMiddleware(getRequestMatchesHandler(app))).Methods("GET")
	app.Router.HandleFunc("/requests/{id}/suggestions", authMiddleware(getSuggestionsHandler(app))).Methods("GET")

	// Allocation
	app.Router.HandleFunc("/matches/{offerId}/{requestId}/commit", requireRole("coordinator", commitMatchHandler(app))).Methods("POST")
	app.Router.HandleFunc("/allocation/run", requireRole("coordinator", runAllocationHandler(app))).Methods("POST")
	app.Router.HandleFunc("/allocation/config", getSweepConfigHandler()).Methods("GET")
	app.Router.HandleFunc("/allocation/config", requireRole("coordinator", setSweepConfigHandler())).Methods("POST")

	// Analytics
	app.Router.HandleFunc("/analytics", getAnalyticsHandler(app)).Methods("GET")
}

// authMiddleware validates JWT token
func authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractTokenFromHeader(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), "claims", claims)
		next(w, r.WithContext(ctx))
	}
}

// requireRole validates JWT and ensures the caller has the given role
func requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)
		if claims.Role != role {
			respondWithError(w, http.StatusForbidden, "Requires role: "+role)
			return
		}
		next(w, r)
	})
}

// healthHandler returns service health status
func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "coordination-service",
			"instance": app.InstanceID,
		}
		if pending, err := app.EventBus.GetPendingCount(r.Context(), EngineConsumerGroup); err == nil {
			health["events_pending"] = pending
		}
		respondWithJSON(w, http.StatusOK, health)
	}
}

// loginHandler authenticates users and returns JWT
func loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}

		user, err := auth.Authenticate(req.Username, req.Password)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := auth.GenerateToken(*user)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   token,
			"user": map[string]string{
				"id":   user.ID,
				"role": user.Role,
				"org":  user.Org,
			},
		})
	}
}

// createReportHandler creates a new incident report
func createReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)

		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
			Severity    string `json:"severity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title == "" {
			respondWithError(w, http.StatusBadRequest, "Title is required")
			return
		}
		if !domain.IsValidReportType(domain.ReportType(req.Type)) {
			respondWithError(w, http.StatusBadRequest, "Invalid report type")
			return
		}
		if !domain.IsValidSeverity(domain.Severity(req.Severity)) {
			respondWithError(w, http.StatusBadRequest, "Invalid severity")
			return
		}

		report := domain.NewReport(claims.Sub, req.Title, req.Description,
			domain.ReportType(req.Type), domain.Severity(req.Severity))
		if err := app.Reports.CreateReport(r.Context(), report); err != nil {
			log.Printf("Error creating report: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create report")
			return
		}

		bumpReputation(app, r.Context(), claims.Sub, domain.CounterTotalReports, 1)

		payload := events.ReportCreatedPayload{
			ReportID:       report.ID.String(),
			ReporterUserID: claims.Sub,
			ReportType:     string(report.Type),
			Severity:       string(report.Severity),
			CreatedAt:      report.CreatedAt,
		}
		publishEvent(app, r.Context(), events.ReportCreated, report.ID.String(), payload)

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"success":   true,
			"message":   "Report created successfully",
			"report_id": report.ID.String(),
			"instance":  app.InstanceID,
		})
	}
}

// getPrioritizedReportsHandler returns unflagged reports ordered by consensus
func getPrioritizedReportsHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := app.Reports.ListPrioritized(r.Context(), 50)
		if err != nil {
			log.Printf("Error listing prioritized reports: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to fetch reports")
			return
		}

		if reports == nil {
			reports = []domain.Report{}
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    reports,
		})
	}
}

// getReportHandler returns a single report
func getReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.GetReport(r.Context(), reportID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch report")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    report,
		})
	}
}

// voteReportHandler records an up/down vote and recomputes consensus
func voteReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			Upvote bool `json:"upvote"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		report, err := app.Reports.GetReport(r.Context(), reportID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch report")
			return
		}

		if err := app.Reports.AddVote(r.Context(), reportID, claims.Sub, req.Upvote); err != nil {
			log.Printf("Error recording vote: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to record vote")
			return
		}

		score, err := app.Scoring.RecomputeConsensus(r.Context(), reportID)
		if err != nil {
			log.Printf("Error recomputing consensus for %s: %v", reportID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to recompute consensus")
			return
		}

		counter := domain.CounterUpvotesReceived
		if !req.Upvote {
			counter = domain.CounterDownvotesReceived
		}
		bumpReputation(app, r.Context(), report.ReporterUserID, counter, 1)

		payload := events.ReportVotedPayload{
			ReportID:    reportID.String(),
			VoterUserID: claims.Sub,
			Upvote:      req.Upvote,
			CreatedAt:   time.Now(),
		}
		publishEvent(app, r.Context(), events.ReportVoted, reportID.String(), payload)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"message":         "Vote recorded",
			"consensus_score": score,
		})
	}
}

// verifyReportHandler records a responder verification and recomputes scores
func verifyReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.GetReport(r.Context(), reportID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch report")
			return
		}

		count, err := app.Reports.AddVerification(r.Context(), reportID, claims.Sub)
		if err != nil {
			log.Printf("Error recording verification: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to record verification")
			return
		}

		score, err := app.Scoring.RecomputeConsensus(r.Context(), reportID)
		if err != nil {
			log.Printf("Error recomputing consensus for %s: %v", reportID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to recompute consensus")
			return
		}

		bumpReputation(app, r.Context(), claims.Sub, domain.CounterVerificationsGiven, 1)

		// The first verification marks the report itself as verified for the
		// reporter's accuracy record. The decision uses the count returned by
		// the insert, so one report credits its reporter at most once.
		if count == 1 {
			bumpReputation(app, r.Context(), report.ReporterUserID, domain.CounterVerifiedReports, 1)
		}

		payload := events.ReportVerifiedPayload{
			ReportID:       reportID.String(),
			VerifierUserID: claims.Sub,
			CreatedAt:      time.Now(),
		}
		publishEvent(app, r.Context(), events.ReportVerified, reportID.String(), payload)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"message":         "Verification recorded",
			"consensus_score": score,
		})
	}
}

// confirmReportHandler sets or clears official confirmation
func confirmReportHandler(app *App, confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var responder *string
		if confirm {
			responder = &claims.Sub
		}

		if err := app.Reports.SetConfirmedBy(r.Context(), reportID, responder); err != nil {
			respondWithDomainError(w, err, "Failed to update confirmation")
			return
		}

		score, err := app.Scoring.RecomputeConsensus(r.Context(), reportID)
		if err != nil {
			log.Printf("Error recomputing consensus for %s: %v", reportID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to recompute consensus")
			return
		}

		payload := events.ReportConfirmedPayload{
			ReportID:    reportID.String(),
			ResponderID: claims.Sub,
			Confirmed:   confirm,
			ChangedAt:   time.Now(),
		}
		publishEvent(app, r.Context(), events.ReportConfirmed, reportID.String(), payload)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"confirmed":       confirm,
			"consensus_score": score,
		})
	}
}

// flagReportHandler flags a report; flagged reports drop out of prioritized lists
func flagReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			FlagType string `json:"flag_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		flag := domain.FlagType(req.FlagType)
		if !domain.IsValidFlagType(flag) {
			respondWithError(w, http.StatusBadRequest, "Invalid flag type. Must be: false_report, duplicate, or spam")
			return
		}

		report, err := app.Reports.GetReport(r.Context(), reportID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch report")
			return
		}

		if err := app.Reports.SetFlag(r.Context(), reportID, &flag); err != nil {
			respondWithDomainError(w, err, "Failed to flag report")
			return
		}

		if flag == domain.FlagFalseReport {
			bumpReputation(app, r.Context(), report.ReporterUserID, domain.CounterFalseReports, 1)
		}

		payload := events.ReportFlaggedPayload{
			ReportID:  reportID.String(),
			FlagType:  string(flag),
			Flagged:   true,
			ChangedAt: time.Now(),
		}
		publishEvent(app, r.Context(), events.ReportFlagged, reportID.String(), payload)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"flag_type": string(flag),
		})
	}
}

// unflagReportHandler clears the flag on a report
func unflagReportHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.GetReport(r.Context(), reportID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch report")
			return
		}

		if err := app.Reports.SetFlag(r.Context(), reportID, nil); err != nil {
			respondWithDomainError(w, err, "Failed to unflag report")
			return
		}

		if report.FlagType != nil && *report.FlagType == domain.FlagFalseReport {
			bumpReputation(app, r.Context(), report.ReporterUserID, domain.CounterFalseReports, -1)
		}

		flagType := ""
		if report.FlagType != nil {
			flagType = string(*report.FlagType)
		}
		payload := events.ReportFlaggedPayload{
			ReportID:  reportID.String(),
			FlagType:  flagType,
			Flagged:   false,
			ChangedAt: time.Now(),
		}
		publishEvent(app, r.Context(), events.ReportFlagged, reportID.String(), payload)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Flag cleared",
		})
	}
}

// aiScoreHandler records the external validator's heuristic score for a report.
// Coordinators relay the score here; consensus picks it up on recompute.
func aiScoreHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			Score int `json:"score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Score < 0 || req.Score > 100 {
			respondWithError(w, http.StatusBadRequest, "Score must be between 0 and 100")
			return
		}

		if err := app.Reports.SetAIValidationScore(r.Context(), reportID, req.Score); err != nil {
			respondWithDomainError(w, err, "Failed to record validation score")
			return
		}

		score, err := app.Scoring.RecomputeConsensus(r.Context(), reportID)
		if err != nil {
			log.Printf("Error recomputing consensus for %s: %v", reportID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to recompute consensus")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"consensus_score": score,
		})
	}
}

// getTrustHandler returns a user's reputation record
func getTrustHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID := vars["id"]

		rep, err := app.Reputation.GetUserReputation(r.Context(), userID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to fetch reputation")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    rep,
		})
	}
}

// createOfferHandler registers a new aid offer
func createOfferHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)

		var req struct {
			ResourceType string `json:"resource_type"`
			Quantity     int    `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.ResourceType == "" {
			respondWithError(w, http.StatusBadRequest, "Resource type is required")
			return
		}
		if req.Quantity <= 0 {
			respondWithError(w, http.StatusBadRequest, "Quantity must be positive")
			return
		}

		offer := domain.NewAidOffer(claims.Sub, req.ResourceType, req.Quantity)
		if err := app.Allocation.CreateOffer(r.Context(), offer); err != nil {
			log.Printf("Error creating offer: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create offer")
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"success":  true,
			"offer_id": offer.ID.String(),
		})
	}
}

// advanceOfferHandler moves an offer along its lifecycle
func advanceOfferHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offerID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		next := domain.OfferStatus(req.Status)
		if !domain.IsValidOfferStatus(next) {
			respondWithError(w, http.StatusBadRequest, "Invalid offer status")
			return
		}

		offer, err := app.Engine.AdvanceOffer(r.Context(), offerID, next)
		if err != nil {
			respondWithDomainError(w, err, "Failed to update offer status")
			return
		}

		// Delivery counts toward the supplier's contribution record and
		// completes the matched request.
		if next == domain.OfferDelivered {
			bumpReputation(app, r.Context(), offer.SupplierUserID, domain.CounterResourcesProvided, 1)
			if offer.MatchedRequestID != nil {
				if _, err := app.Engine.AdvanceRequest(r.Context(), *offer.MatchedRequestID, domain.RequestFulfilled); err != nil {
					log.Printf("Error fulfilling request %s after delivery: %v", offer.MatchedRequestID, err)
				}
			}
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    offer,
		})
	}
}

// createRequestHandler registers a new resource request
func createRequestHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value("claims").(*auth.Claims)

		var req struct {
			ResourceType string `json:"resource_type"`
			Quantity     int    `json:"quantity"`
			Urgency      string `json:"urgency"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.ResourceType == "" {
			respondWithError(w, http.StatusBadRequest, "Resource type is required")
			return
		}
		if req.Quantity <= 0 {
			respondWithError(w, http.StatusBadRequest, "Quantity must be positive")
			return
		}
		if !domain.IsValidUrgency(domain.Urgency(req.Urgency)) {
			respondWithError(w, http.StatusBadRequest, "Invalid urgency")
			return
		}

		request := domain.NewResourceRequest(claims.Sub, req.ResourceType, req.Quantity, domain.Urgency(req.Urgency))
		if err := app.Allocation.CreateRequest(r.Context(), request); err != nil {
			log.Printf("Error creating request: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create request")
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"success":    true,
			"request_id": request.ID.String(),
		})
	}
}

// advanceRequestHandler moves a request along its lifecycle
func advanceRequestHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		next := domain.RequestStatus(req.Status)
		if !domain.IsValidRequestStatus(next) {
			respondWithError(w, http.StatusBadRequest, "Invalid request status")
			return
		}

		request, err := app.Engine.AdvanceRequest(r.Context(), requestID, next)
		if err != nil {
			respondWithDomainError(w, err, "Failed to update request status")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    request,
		})
	}
}

// getRequestMatchesHandler returns scored candidate offers for a request
func getRequestMatchesHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		matches, err := app.Engine.FindMatchesForRequest(r.Context(), requestID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to find matches")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    matches,
		})
	}
}

// getOfferMatchesHandler returns scored candidate requests for an offer
func getOfferMatchesHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offerID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		matches, err := app.Engine.FindMatchesForOffer(r.Context(), offerID)
		if err != nil {
			respondWithDomainError(w, err, "Failed to find matches")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    matches,
		})
	}
}

// getSuggestionsHandler returns the batch-run audit trail for one request
func getSuggestionsHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := parseID(w, r, "id")
		if !ok {
			return
		}

		suggestions, err := app.Allocation.ListSuggestionsForRequest(r.Context(), requestID)
		if err != nil {
			log.Printf("Error listing suggestions: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to fetch suggestions")
			return
		}

		if suggestions == nil {
			suggestions = []domain.MatchSuggestion{}
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    suggestions,
		})
	}
}

// commitMatchHandler accepts a match suggestion
func commitMatchHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		offerID, err := uuid.Parse(vars["offerId"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid offer id")
			return
		}
		requestID, err := uuid.Parse(vars["requestId"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request id")
			return
		}

		if err := app.Engine.CommitMatch(r.Context(), offerID, requestID); err != nil {
			respondWithDomainError(w, err, "Failed to commit match")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"message":    "Match committed",
			"offer_id":   offerID.String(),
			"request_id": requestID.String(),
		})
	}
}

// runAllocationHandler triggers a batch allocation sweep
func runAllocationHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := app.Engine.RunBatchAllocation(r.Context())
		if err != nil {
			log.Printf("Error running batch allocation: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Batch allocation failed")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    result,
		})
	}
}

// getAnalyticsHandler returns the derived supply/demand gap picture
func getAnalyticsHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analytics, err := app.Engine.Analytics(r.Context())
		if err != nil {
			log.Printf("Error computing analytics: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to compute analytics")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    analytics,
		})
	}
}

// getSweepConfigHandler returns the current allocation sweep interval
func getSweepConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interval := GetSweepInterval()
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":            true,
			"sweep_interval_sec": int(interval.Seconds()),
			"sweep_enabled":      interval > 0,
		})
	}
}

// setSweepConfigHandler sets the allocation sweep interval (0 disables)
func setSweepConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IntervalSeconds int `json:"interval_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}

		if req.IntervalSeconds < 0 {
			respondWithError(w, http.StatusBadRequest, "Interval must not be negative")
			return
		}

		SetSweepInterval(time.Duration(req.IntervalSeconds) * time.Second)

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":            true,
			"message":            "Sweep interval updated",
			"sweep_interval_sec": req.IntervalSeconds,
		})
	}
}

// bumpReputation increments one counter, recomputes the user's trust score,
// and publishes the reputation change. Reputation bookkeeping failures are
// logged, not fatal to the triggering mutation.
func bumpReputation(app *App, ctx context.Context, userID string, counter domain.ReputationCounter, delta int) {
	if err := app.Reputation.IncrementCounter(ctx, userID, counter, delta); err != nil {
		log.Printf("Error incrementing %s for user %s: %v", counter, userID, err)
		return
	}
	if _, err := app.Scoring.RecomputeTrust(ctx, userID); err != nil {
		log.Printf("Error recomputing trust for user %s: %v", userID, err)
	}

	payload := events.ReputationChangedPayload{
		UserID:    userID,
		Counter:   string(counter),
		Delta:     delta,
		ChangedAt: time.Now(),
	}
	publishEvent(app, ctx, events.ReputationChanged, userID, payload)
}

// publishEvent publishes a domain event, logging rather than failing the request
func publishEvent(app *App, ctx context.Context, eventType, subjectID string, payload interface{}) {
	event, err := events.NewEvent(eventType, subjectID, payload)
	if err != nil {
		log.Printf("Error building %s event: %v", eventType, err)
		return
	}
	if err := app.EventBus.Publish(ctx, event); err != nil {
		log.Printf("Error publishing event: %v", err)
	} else {
		log.Printf("[EVENT] Published %s for %s", eventType, subjectID)
	}
}

// parseID parses a UUID path variable
func parseID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars[name])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// respondWithDomainError maps engine errors onto HTTP statuses
func respondWithDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// respondWithJSON writes JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes error JSON response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
