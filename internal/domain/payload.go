package domain

// Kind-specific job payloads. The input struct is serialized into
// JobRecord.Input at creation and never modified; the output struct is
// serialized into JobRecord.Result on completion.

// ParseTemplateInput describes a resume file uploaded for parsing.
type ParseTemplateInput struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
}

// ParseLinkedInURLInput describes a public LinkedIn profile to import.
type ParseLinkedInURLInput struct {
	ProfileURL string `json:"profile_url"`
}

// ParseLinkedInZipInput describes a LinkedIn data-export archive to import.
type ParseLinkedInZipInput struct {
	FilePath string `json:"file_path"`
}

// ParseOutput is the result of any parse-* job: the resume record created or
// updated from the parsed content.
type ParseOutput struct {
	ResumeID string         `json:"resume_id"`
	Resume   *ResumeContent `json:"resume"`
}

// RenderInput describes a PDF render request for an existing resume.
type RenderInput struct {
	ResumeID string `json:"resume_id"`
	Template string `json:"template,omitempty"`
}

// RenderOutput is the location of the rendered artifact.
type RenderOutput struct {
	ArtifactKey string `json:"artifact_key"`
	ArtifactURL string `json:"artifact_url"`
}

// ScoreInput describes an ATS score or rewrite request.
type ScoreInput struct {
	ResumeID       string `json:"resume_id"`
	JobDescription string `json:"job_description,omitempty"`
}

// ATSReport is the result of an ats-score or ats-rewrite job. Rewritten is
// populated only for rewrites.
type ATSReport struct {
	Score      int      `json:"score"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Summary    string   `json:"summary,omitempty"`
	Rewritten  string   `json:"rewritten,omitempty"`
	Generated  bool     `json:"generated,omitempty"`
}

// EvaluateInput describes an interview evaluation request.
type EvaluateInput struct {
	InterviewID string `json:"interview_id"`
}

// InterviewReport is the result of an interview-evaluate job, also written
// onto the owning interview record.
type InterviewReport struct {
	Scores         map[string]float64 `json:"scores"`
	Strengths      []string           `json:"strengths"`
	Improvements   []string           `json:"improvements"`
	Summary        string             `json:"summary"`
	Recommendation Recommendation     `json:"recommendation"`
	Generated      bool               `json:"generated,omitempty"`
}

// JudgeInput describes a judge-evaluate job; the target JudgeEvaluation
// record is identified by the (interview, judge) pair.
type JudgeInput struct {
	InterviewID string `json:"interview_id"`
	JudgeID     string `json:"judge_id"`
}
