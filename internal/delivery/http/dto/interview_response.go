package dto

import "quantprep/internal/workflow"

type InterviewResponse struct {
	Interview workflow.Snapshot `json:"interview"`
	Session   *SessionResponse  `json:"session,omitempty"`
}

type AnswerResponse struct {
	Result  workflow.AnswerResult `json:"result"`
	Session *SessionResponse      `json:"session,omitempty"`
}

func NewInterviewResponse(s workflow.Snapshot) InterviewResponse {
	out := InterviewResponse{Interview: s}
	if s.Session != nil {
		sr := NewSessionResponse(*s.Session)
		out.Session = &sr
	}
	return out
}

func NewAnswerResponse(r workflow.AnswerResult) AnswerResponse {
	out := AnswerResponse{Result: r}
	if r.Session != nil {
		sr := NewSessionResponse(*r.Session)
		out.Session = &sr
	}
	return out
}
