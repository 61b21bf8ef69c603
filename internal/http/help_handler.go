package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/homevisit/internal/application"
)

type faqService interface {
	ListFaqs(ctx context.Context) ([]application.Faq, error)
}

type feedbackService interface {
	SubmitFeedback(ctx context.Context, input application.FeedbackInput) (application.Feedback, error)
}

// HelpHandler serves the help page and the contact form.
type HelpHandler struct {
	faqs      faqService
	feedback  feedbackService
	responder responder
}

// NewHelpHandler constructs a HelpHandler.
func NewHelpHandler(faqs faqService, feedback feedbackService, logger *slog.Logger) *HelpHandler {
	return &HelpHandler{faqs: faqs, feedback: feedback, responder: newResponder(logger)}
}

// ListFaqs handles GET /faqs.
func (h *HelpHandler) ListFaqs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.faqs == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	faqs, err := h.faqs.ListFaqs(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := faqListResponse{Faqs: make([]faqDTO, 0, len(faqs))}
	for _, f := range faqs {
		resp.Faqs = append(resp.Faqs, faqDTO{ShortName: f.ShortName, Question: f.Question, Answer: f.Answer})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// SubmitFeedback handles POST /feedback.
func (h *HelpHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feedback == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req feedbackRequest
	if !h.responder.decodeBody(w, r, &req) {
		return
	}

	fb, err := h.feedback.SubmitFeedback(r.Context(), application.FeedbackInput(req))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, feedbackResponse{
		ID:        fb.ID,
		Issue:     fb.Issue,
		CreatedAt: fb.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type faqDTO struct {
	ShortName string `json:"short_name"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

type faqListResponse struct {
	Faqs []faqDTO `json:"faqs"`
}

type feedbackRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Issue       string `json:"issue"`
	Comment     string `json:"comment"`
}

type feedbackResponse struct {
	ID        string `json:"id"`
	Issue     string `json:"issue"`
	CreatedAt string `json:"created_at"`
}
