package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/svviitzerland/Medisync/internal/domain/directory"
	"github.com/svviitzerland/Medisync/internal/domain/pharmacy"
	"github.com/svviitzerland/Medisync/internal/domain/ticket"
	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/llm"
)

type Doctors interface {
	ListDoctors(ctx context.Context) ([]*directory.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

type Patients interface {
	GetPatientByNIK(ctx context.Context, nik string) (*directory.Profile, error)
}

type Tickets interface {
	Get(ctx context.Context, id int64) (*ticket.Ticket, error)
	History(ctx context.Context, patientID uuid.UUID, limit int) ([]*ticket.HistoryEntry, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*ticket.Ticket, error)
}

type Catalog interface {
	ListCatalog(ctx context.Context, inStockOnly bool) ([]*pharmacy.Medicine, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]*pharmacy.Prescription, error)
}

const (
	defaultSpecialization = "Internal Medicine"
	defaultDoctorName     = "General Practitioner"
	defaultSeverity       = "medium"

	suggestHistoryLimit = 10
	chatHistoryLimit    = 20
	chatPastVisits      = 5
)

type Service struct {
	llm      llm.Completer
	doctors  Doctors
	patients Patients
	tickets  Tickets
	catalog  Catalog
	chats    ChatRepository
	logger   zerolog.Logger
}

func NewService(completer llm.Completer, doctors Doctors, patients Patients, tickets Tickets, catalog Catalog, chats ChatRepository, logger zerolog.Logger) *Service {
	return &Service{
		llm:      completer,
		doctors:  doctors,
		patients: patients,
		tickets:  tickets,
		catalog:  catalog,
		chats:    chats,
		logger:   logger.With().Str("component", "assistant").Logger(),
	}
}

// -- Triage --

type triageOutput struct {
	Action            string `json:"action"`
	Specialization    string `json:"predicted_specialization"`
	DoctorID          string `json:"recommended_doctor_id"`
	DoctorName        string `json:"recommended_doctor_name"`
	RequiresInpatient bool   `json:"requires_inpatient"`
	Severity          string `json:"severity_level"`
	Reasoning         string `json:"reasoning"`
}

// Triage classifies a front office complaint. Directory and history lookups
// are best effort.
func (s *Service) Triage(ctx context.Context, req TriageRequest) TriageResult {
	complaint := strings.TrimSpace(req.Complaint)
	if complaint == "" {
		return TriageResult{Envelope: failed("fo_note is required")}
	}

	doctors, err := s.doctors.ListDoctors(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("triage without doctor directory")
	}
	var history []*ticket.HistoryEntry
	if req.PatientID != nil {
		if history, err = s.tickets.History(ctx, *req.PatientID, suggestHistoryLimit); err != nil {
			s.logger.Warn().Err(err).Str("patient_id", req.PatientID.String()).Msg("triage without patient history")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patient complaint:\n<complaint>\n%s\n</complaint>\n\n", complaint)
	writeJSONSection(&b, "Doctors on duty", doctors, "No doctor directory available.")
	if req.PatientID != nil {
		writeJSONSection(&b, "Previous visits", history, "No previous visits.")
	} else {
		b.WriteString("New patient, no history available.\n")
	}

	raw, err := s.llm.Complete(ctx, []llm.Message{llm.System(triagePrompt), llm.User(b.String())}, llm.Options{Temperature: 0.2})
	if err != nil {
		s.logger.Error().Err(err).Msg("triage completion failed")
		return TriageResult{Envelope: failed("AI triage is unavailable. Please perform manual triage.")}
	}

	var out triageOutput
	if err := llm.DecodeJSON(raw, &out); err != nil {
		s.logger.Warn().Err(err).Msg("unstructured triage answer")
		return TriageResult{Envelope: succeeded(), Analysis: &TriageDecision{
			Specialization: defaultSpecialization,
			DoctorName:     defaultDoctorName,
			Severity:       defaultSeverity,
			Reasoning:      strings.TrimSpace(raw),
		}}
	}

	if strings.EqualFold(out.Action, "reject") {
		reason := out.Reasoning
		if reason == "" {
			reason = "The complaint was not recognised as a medical complaint."
		}
		return TriageResult{Envelope: rejected(reason)}
	}
	return TriageResult{Envelope: succeeded(), Analysis: decide(out, doctors, raw)}
}

// decide fills defaults and drops a recommended doctor that is not on duty.
func decide(out triageOutput, doctors []*directory.Doctor, raw string) *TriageDecision {
	d := &TriageDecision{
		Specialization:    strings.TrimSpace(out.Specialization),
		DoctorName:        strings.TrimSpace(out.DoctorName),
		RequiresInpatient: out.RequiresInpatient,
		Severity:          strings.ToLower(strings.TrimSpace(out.Severity)),
		Reasoning:         out.Reasoning,
	}
	if d.Specialization == "" {
		d.Specialization = defaultSpecialization
	}
	if !ticket.ValidSeverity(d.Severity) {
		d.Severity = defaultSeverity
	}
	if d.Reasoning == "" {
		d.Reasoning = strings.TrimSpace(raw)
	}

	if id, err := uuid.Parse(strings.TrimSpace(out.DoctorID)); err == nil {
		for _, doc := range doctors {
			if doc.ID == id {
				d.DoctorID = &id
				if d.DoctorName == "" {
					d.DoctorName = doc.Name
				}
				break
			}
		}
	}
	if d.DoctorName == "" {
		d.DoctorName = defaultDoctorName
	}
	return d
}

// -- Diagnostic suggestion --

type suggestOutput struct {
	Diagnosis     string `json:"diagnosis"`
	TreatmentPlan string `json:"treatment_plan"`
	Medicines     []struct {
		MedicineID int64  `json:"medicine_id"`
		Name       string `json:"name"`
		Quantity   int    `json:"quantity"`
		Notes      string `json:"notes"`
	} `json:"medicines"`
	RequiresInpatient bool   `json:"requires_inpatient"`
	Reasoning         string `json:"reasoning"`
}

// Suggest drafts a diagnosis for the patient's active visit. Suggested
// medicines are limited to the in-stock catalog.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) SuggestResult {
	nik := strings.TrimSpace(req.NIK)
	if nik == "" {
		return SuggestResult{Envelope: failed("nik is required")}
	}
	patient, err := s.patients.GetPatientByNIK(ctx, nik)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return SuggestResult{Envelope: failed("Patient not found with NIK " + nik)}
		}
		s.logger.Error().Err(err).Msg("suggest: patient lookup failed")
		return SuggestResult{Envelope: failed("Patient lookup failed. Please proceed manually.")}
	}

	current, err := s.tickets.ActiveForPatient(ctx, patient.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggest without active ticket")
	}
	history, err := s.tickets.History(ctx, patient.ID, suggestHistoryLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggest without history")
	}
	medicines, err := s.catalog.ListCatalog(ctx, true)
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggest without medicine catalog")
	}

	var b strings.Builder
	age := "N/A"
	if patient.Age != nil {
		age = fmt.Sprint(*patient.Age)
	}
	fmt.Fprintf(&b, "## Patient\nName: %s, Age: %s, NIK: %s\n\n", patient.Name, age, nik)
	writeJSONSection(&b, "Current complaint", current, "No active ticket found.")
	writeJSONSection(&b, "Medical history", history, "No previous history.")
	writeJSONSection(&b, "Medicine catalog", medicines, "The catalog is empty.")
	if draft := strings.TrimSpace(req.DoctorDraft); draft != "" {
		fmt.Fprintf(&b, "## Doctor's draft notes\n%s\n\nReview and extend these notes, keeping the doctor's intent.\n", draft)
	} else {
		b.WriteString("The doctor has not written notes yet. Give a complete diagnostic suggestion.\n")
	}

	raw, err := s.llm.Complete(ctx, []llm.Message{llm.System(suggestPrompt), llm.User(b.String())}, llm.Options{Temperature: 0.3})
	if err != nil {
		s.logger.Error().Err(err).Msg("suggest completion failed")
		return SuggestResult{Envelope: failed("AI assistant is unavailable. Please proceed manually.")}
	}

	var out suggestOutput
	if err := llm.DecodeJSON(raw, &out); err != nil {
		s.logger.Warn().Err(err).Msg("unstructured suggestion")
		return SuggestResult{Envelope: succeeded(), Suggestion: &Suggestion{
			Medicines: []SuggestedMedicine{},
			Reasoning: strings.TrimSpace(raw),
		}}
	}

	catalog := make(map[int64]*pharmacy.Medicine, len(medicines))
	for _, m := range medicines {
		catalog[m.ID] = m
	}
	meds := make([]SuggestedMedicine, 0, len(out.Medicines))
	for _, m := range out.Medicines {
		known, ok := catalog[m.MedicineID]
		if !ok {
			continue
		}
		sm := SuggestedMedicine{MedicineID: m.MedicineID, Name: m.Name, Quantity: m.Quantity, Notes: m.Notes}
		if sm.Name == "" {
			sm.Name = known.Name
		}
		if sm.Quantity <= 0 {
			sm.Quantity = 1
		}
		meds = append(meds, sm)
	}

	return SuggestResult{Envelope: succeeded(), Suggestion: &Suggestion{
		Diagnosis:         out.Diagnosis,
		TreatmentPlan:     out.TreatmentPlan,
		Medicines:         meds,
		RequiresInpatient: out.RequiresInpatient,
		Reasoning:         out.Reasoning,
	}}
}

// -- Patient chat --

// Chat answers a patient's question about their visit. It refuses to call the
// model until the doctor has written a note.
func (s *Service) Chat(ctx context.Context, req ChatRequest) ChatResult {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResult{Envelope: failed("message is required")}
	}
	t, err := s.ownTicket(ctx, req.TicketID, req.Requester)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ChatResult{Envelope: failed("Ticket not found.")}
		}
		s.logger.Error().Err(err).Int64("ticket_id", req.TicketID).Msg("chat: ticket lookup failed")
		return ChatResult{Envelope: failed("Chat is unavailable right now. Please try again later.")}
	}
	if t.DoctorNote == nil || strings.TrimSpace(*t.DoctorNote) == "" {
		return ChatResult{Envelope: succeeded(), Reply: NotReadyReply, HasContext: false, TicketID: t.ID}
	}

	msgs := []llm.Message{llm.System(chatPrompt + "\n\n" + s.chatContext(ctx, t))}
	past, err := s.chats.Recent(ctx, t.ID, chatHistoryLimit)
	if err != nil {
		s.logger.Warn().Err(err).Int64("ticket_id", t.ID).Msg("chat without previous messages")
	}
	for _, m := range past {
		if m.Sender == SenderPatient {
			msgs = append(msgs, llm.User(m.Message))
		} else {
			msgs = append(msgs, llm.Assistant(m.Message))
		}
	}
	msgs = append(msgs, llm.User(message))

	reply, err := s.llm.Complete(ctx, msgs, llm.Options{Temperature: 0.7, MaxTokens: 1024})
	if err != nil {
		s.logger.Error().Err(err).Int64("ticket_id", t.ID).Msg("chat completion failed")
		return ChatResult{Envelope: failed("Chat is unavailable right now. Please try again later.")}
	}

	if err := s.chats.AppendExchange(ctx, t.ID, t.PatientID, message, reply); err != nil {
		s.logger.Warn().Err(err).Int64("ticket_id", t.ID).Msg("chat exchange not saved")
	}
	return ChatResult{Envelope: succeeded(), Reply: reply, HasContext: true, TicketID: t.ID}
}

// ChatHistory returns the stored conversation of a ticket.
func (s *Service) ChatHistory(ctx context.Context, ticketID int64, requester *uuid.UUID) ([]*ChatMessage, error) {
	if _, err := s.ownTicket(ctx, ticketID, requester); err != nil {
		return nil, err
	}
	return s.chats.Recent(ctx, ticketID, chatHistoryLimit)
}

func (s *Service) ownTicket(ctx context.Context, id int64, requester *uuid.UUID) (*ticket.Ticket, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester != nil && t.PatientID != *requester {
		return nil, apperr.NotFound("ticket %d not found", id)
	}
	return t, nil
}

func (s *Service) chatContext(ctx context.Context, t *ticket.Ticket) string {
	var b strings.Builder
	doctor := "N/A"
	if t.DoctorID != nil {
		if d, err := s.doctors.GetDoctor(ctx, *t.DoctorID); err == nil {
			doctor = fmt.Sprintf("%s (%s)", d.Name, d.Specialization)
		}
	}
	severity := "N/A"
	if t.Severity != nil {
		severity = *t.Severity
	}

	b.WriteString("=== CURRENT VISIT ===\n")
	fmt.Fprintf(&b, "Date: %s\nDoctor: %s\nComplaint: %s\nDoctor's notes: %s\nSeverity: %s\nStatus: %s\n\n",
		t.CreatedAt.Format("2006-01-02"), doctor, t.FONote, *t.DoctorNote, severity, t.Status)

	if rx, err := s.catalog.ListByTicket(ctx, t.ID); err != nil {
		s.logger.Warn().Err(err).Int64("ticket_id", t.ID).Msg("chat without prescriptions")
	} else if len(rx) > 0 {
		b.WriteString("--- Prescribed medicines ---\n")
		for _, p := range rx {
			name, notes := "Unknown", "-"
			if p.MedicineName != nil {
				name = *p.MedicineName
			}
			if p.Notes != nil && *p.Notes != "" {
				notes = *p.Notes
			}
			fmt.Fprintf(&b, "- %s: %d units. Notes: %s\n", name, p.Quantity, notes)
		}
		b.WriteString("\n")
	}

	history, err := s.tickets.History(ctx, t.PatientID, chatPastVisits+1)
	if err != nil {
		s.logger.Warn().Err(err).Int64("ticket_id", t.ID).Msg("chat without past visits")
	}
	var past []*ticket.HistoryEntry
	for _, h := range history {
		if h.TicketID != t.ID && h.DoctorNote != nil && *h.DoctorNote != "" && len(past) < chatPastVisits {
			past = append(past, h)
		}
	}
	if len(past) > 0 {
		b.WriteString("=== PAST VISITS ===\n")
		for _, h := range past {
			fmt.Fprintf(&b, "Date: %s\nComplaint: %s\nDiagnosis: %s\n\n", h.CreatedAt.Format("2006-01-02"), h.FONote, *h.DoctorNote)
		}
	}
	return b.String()
}

// -- Pre-assessment --

// Questions proposes 3 to 5 follow-up questions for a complaint.
func (s *Service) Questions(ctx context.Context, complaint string) QuestionsResult {
	complaint = strings.TrimSpace(complaint)
	if complaint == "" {
		return QuestionsResult{Envelope: failed("complaint is required")}
	}
	prompt := fmt.Sprintf("Patient initial complaint:\n<complaint>\n%s\n</complaint>", complaint)
	raw, err := s.llm.Complete(ctx, []llm.Message{llm.System(questionsPrompt), llm.User(prompt)}, llm.Options{Temperature: 0.5})
	if err != nil {
		s.logger.Error().Err(err).Msg("questions completion failed")
		return QuestionsResult{Envelope: failed("AI assistant is unavailable. Please continue without follow-up questions.")}
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	_ = llm.DecodeJSON(raw, &out)
	var questions []string
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) < 3 {
		return QuestionsResult{
			Envelope:    failed("AI failed to format questions properly. Please try again."),
			RawResponse: raw,
		}
	}
	if len(questions) > 5 {
		questions = questions[:5]
	}
	return QuestionsResult{Envelope: succeeded(), Questions: questions}
}

// Summarize condenses the pre-assessment conversation into a front office
// note. An unstructured answer is used as the summary verbatim.
func (s *Service) Summarize(ctx context.Context, turns []Turn) SummaryResult {
	var b strings.Builder
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "**%s**: %s\n", capitalize(strings.TrimSpace(t.Role)), content)
	}
	if b.Len() == 0 {
		return SummaryResult{Envelope: failed("qa_history is required")}
	}

	prompt := "Patient Q&A history:\n<qa_history>\n" + b.String() + "</qa_history>"
	raw, err := s.llm.Complete(ctx, []llm.Message{llm.System(summaryPrompt), llm.User(prompt)}, llm.Options{Temperature: 0.3})
	if err != nil {
		s.logger.Error().Err(err).Msg("summary completion failed")
		return SummaryResult{Envelope: failed("AI assistant is unavailable. Please write the note manually.")}
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := llm.DecodeJSON(raw, &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		return SummaryResult{Envelope: succeeded(), Summary: strings.TrimSpace(raw)}
	}
	return SummaryResult{Envelope: succeeded(), Summary: strings.TrimSpace(out.Summary)}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func writeJSONSection(b *strings.Builder, title string, v interface{}, empty string) {
	fmt.Fprintf(b, "## %s\n", title)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil || string(data) == "null" || string(data) == "[]" {
		b.WriteString(empty + "\n\n")
		return
	}
	b.Write(data)
	b.WriteString("\n\n")
}
