package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"termbilling/models"
	"termbilling/service"
)

const (
	billingDateLayout = "2006-01-02"
	maxBodyBytes      = 1 << 20
)

var errTermIDNotInteger = errors.New("term_id must be an integer")

// TermID accepts a JSON number or a string holding one, so "3" and 3 name
// the same term. null and "" decode to zero.
type TermID int64

// UnmarshalJSON implements json.Unmarshaler
func (id *TermID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errTermIDNotInteger
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*id = 0
			return nil
		}
		raw = []byte(s)
	}

	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return errTermIDNotInteger
	}
	*id = TermID(v)
	return nil
}

// BillNewTermRequest is the body of POST /api/bill-new-term
type BillNewTermRequest struct {
	TermID      TermID `json:"term_id"`
	BillingDate string `json:"billing_date,omitempty"`
}

// BillNewTermResponse is returned after a committed billing run
type BillNewTermResponse struct {
	Message         string `json:"message"`
	TermID          int64  `json:"term_id"`
	BillingDate     string `json:"billing_date"`
	StudentsBilled  int    `json:"students_billed"`
	StudentsSkipped int    `json:"students_skipped"`
	LedgerEntries   int    `json:"ledger_entries"`
	TotalTuitionUSD string `json:"total_tuition_usd"`
	TotalLevyUSD    string `json:"total_levy_usd"`
}

// FeeEntryResponse is one ledger entry of GET /api/students/{id}/fees
type FeeEntryResponse struct {
	ID            int64  `json:"id"`
	StudentID     int64  `json:"student_id"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	USDEquivalent string `json:"usd_equivalent"`
	Timeline      string `json:"timeline"`
	Form          string `json:"form"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Backend is running!",
	})
}

func (s *Server) handleBillNewTerm(w http.ResponseWriter, r *http.Request) {
	var req BillNewTermRequest
	if err := decodeBillNewTermRequest(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	billTermReq := service.BillTermRequest{TermID: int64(req.TermID)}
	if req.BillingDate != "" {
		date, err := time.Parse(billingDateLayout, req.BillingDate)
		if err != nil {
			writeServiceError(w, service.NewValidationError("billing_date must be in YYYY-MM-DD format"))
			return
		}
		billTermReq.BillingDate = date
	}

	result, err := s.billingService.BillTerm(r.Context(), billTermReq)
	if err != nil {
		requestLogger(r).WithFields(log.Fields{
			"termID": req.TermID,
			"kind":   service.KindOf(err).String(),
			"error":  err,
		}).Error("Billing run failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BillNewTermResponse{
		Message:         fmt.Sprintf("Successfully billed %d active students for term %d", result.StudentsBilled, result.TermID),
		TermID:          result.TermID,
		BillingDate:     result.BillingDate.Format(billingDateLayout),
		StudentsBilled:  result.StudentsBilled,
		StudentsSkipped: result.StudentsSkipped,
		LedgerEntries:   result.LedgerEntries,
		TotalTuitionUSD: result.TotalTuitionUSD.StringFixed(2),
		TotalLevyUSD:    result.TotalLevyUSD.StringFixed(2),
	})
}

// decodeBillNewTermRequest reads the request body. An empty body decodes to
// the zero request so the missing term is reported by validation.
func decodeBillNewTermRequest(w http.ResponseWriter, r *http.Request, req *BillNewTermRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(req)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	if errors.Is(err, errTermIDNotInteger) {
		return service.NewValidationError(errTermIDNotInteger.Error())
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "term_id":
			return service.NewValidationError("term_id must be an integer")
		case "billing_date":
			return service.NewValidationError("billing_date must be in YYYY-MM-DD format")
		}
	}
	return service.NewValidationError("Invalid JSON body")
}

func (s *Server) handleStudentFees(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeServiceError(w, service.NewValidationError("student id must be an integer"))
		return
	}

	entries, err := s.billingService.GetStudentFees(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]FeeEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, newFeeEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, response)
}

func newFeeEntryResponse(entry *models.FeeEntry) FeeEntryResponse {
	return FeeEntryResponse{
		ID:            entry.ID,
		StudentID:     entry.StudentID,
		Date:          entry.Date.Format(billingDateLayout),
		Amount:        entry.Amount.StringFixed(2),
		Type:          string(entry.Type),
		Currency:      string(entry.Currency),
		USDEquivalent: entry.USDEquivalent.StringFixed(2),
		Timeline:      entry.Timeline,
		Form:          entry.Form,
	}
}
