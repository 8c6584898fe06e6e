package http

import (
	"net/http"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/services"
)

type confirmData struct {
	BoxID   string
	Title   string
	Message string
	Step    int
	Steps   int
	Final   bool
	Error   string
}

func newConfirmData(p services.Prompt) confirmData {
	return confirmData{
		BoxID:   p.BoxID,
		Title:   p.Title,
		Message: p.Message,
		Step:    p.Step,
		Steps:   p.Steps,
		Final:   p.Final(),
	}
}

type historyData struct {
	Title   string
	Entries []core.HistoryEntry
}

// handleCashOut opens the confirmation dialog of a box at its first step.
func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	id := boxID(r)
	p, err := s.boxes.RequestCashOut(id)
	if err != nil {
		s.writeBoxError(w, r, id, log.OpCashOut, err)
		return
	}
	s.writePartial(w, r, "confirm", newConfirmData(p), http.StatusOK)
}

// handleConfirm advances the dialog. Below the last step it renders the next
// prompt; at the last step it commits and swaps the whole box for its
// cashed-out rendering.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := boxID(r)
	out, err := s.boxes.AdvanceConfirmation(r.Context(), id)
	if err != nil {
		if out.Prompt != nil {
			// The dialog stays open on its last step; a 2xx keeps htmx swapping it in.
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Cash-out commit failed",
				log.FieldBoxID, id, log.FieldOperation, log.OpCommit, log.FieldError, err)
			data := newConfirmData(*out.Prompt)
			data.Error = userMessage(err)
			body, rerr := s.render("confirm", data)
			if rerr != nil {
				s.renderFailed(w, r, "confirm", rerr)
				return
			}
			NewHTMXResponse().TriggerErrorNotification(data.Error).HTML(body).Write(w)
			return
		}
		s.writeBoxError(w, r, id, log.OpConfirm, err)
		return
	}

	if out.Prompt != nil {
		s.writePartial(w, r, "confirm", newConfirmData(*out.Prompt), http.StatusOK)
		return
	}

	body, err := s.render("box", out.Box)
	if err != nil {
		s.renderFailed(w, r, "box", err)
		return
	}
	final, _ := out.Box.Amount()
	amount := core.FormatDollars(final)
	NewHTMXResponse().
		Retarget("#box-"+out.Box.ID, "outerHTML").
		TriggerBoxCashedOut(out.Box.ID, amount).
		TriggerSuccessNotification(out.Box.Title + " cashed out for " + amount).
		HTML(body).
		Write(w)
}

// handleCancel closes the dialog and empties its slot.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := boxID(r)
	if err := s.boxes.CancelConfirmation(id); err != nil {
		s.writeBoxError(w, r, id, log.OpCancel, err)
		return
	}
	NewHTMXResponse().HTML(nil).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := boxID(r)
	box, err := s.boxes.Box(id)
	if err != nil {
		s.writeBoxError(w, r, id, log.OpHistory, err)
		return
	}
	entries, err := s.boxes.ViewHistory(id)
	if err != nil {
		s.writeBoxError(w, r, id, log.OpHistory, err)
		return
	}
	s.writePartial(w, r, "history", historyData{Title: box.Title, Entries: entries}, http.StatusOK)
}

func (s *Server) writePartial(w http.ResponseWriter, r *http.Request, name string, data any, status int) {
	body, err := s.render(name, data)
	if err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	NewHTMXResponse().Status(status).HTML(body).Write(w)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		log.FieldError, err,
		"template", name,
		log.FieldOperation, log.OpRender)
	InternalServerError("Failed to render response").Write(w)
}

func (s *Server) writeBoxError(w http.ResponseWriter, r *http.Request, id, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Box operation failed",
			log.FieldBoxID, id, log.FieldOperation, op, log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Box operation rejected",
			log.FieldBoxID, id, log.FieldOperation, op, log.FieldError, err)
	}
	ErrorResponse(status, userMessage(err)).
		TriggerErrorNotification(userMessage(err)).
		Write(w)
}
