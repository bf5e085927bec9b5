package services

import "fmt"

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildCategorySplitPrompt creates the prompt that decomposes a job offer
// into the three retrieval queries.
func (pb *PromptBuilder) BuildCategorySplitPrompt(jobOfferText string) string {
	return fmt.Sprintf(`Extract search-focused fields from the job offer below.
Return short query strings for three categories: skill, experience, education.
For skill, prefer concrete technical/domain terms (e.g. "backend python fastapi"),
not only generic words like "engineer".
Preserve every hard constraint exactly (years of experience, seniority, degree
requirements). Do not invent requirements not present in the input.

JOB OFFER:
%s

Return your response in the following JSON format:
{
  "skill": "<skill query>",
  "experience": "<experience query>",
  "education": "<education query>"
}`, jobOfferText)
}

// BuildMetadataExtractionPrompt creates the prompt that turns raw CV text
// into structured candidate metadata.
func (pb *PromptBuilder) BuildMetadataExtractionPrompt(cvText string) string {
	return fmt.Sprintf(`You are an assistant specialized in CV/Resume analysis.
You will receive the extracted text content of a candidate CV.

Extract structured metadata as a single valid JSON object. Do NOT hallucinate
or invent information: if a field is not explicitly present, use null or an
empty array. Preserve the original language of the CV in values.

CANDIDATE CV:
%s

Return your response in the following JSON format:
{
  "candidate_name": string|null,
  "email": string|null,
  "skills": {
    "hard_skills": [string],
    "tools_technologies": [string],
    "languages": [string],
    "certifications": [string]
  },
  "education": [
    {
      "degree": string|null,
      "field": string|null,
      "institution": string|null,
      "end_date": string|null
    }
  ],
  "experience_summary": {
    "current_title": string|null,
    "current_company": string|null,
    "years_experience_estimate": number|null,
    "top_roles": [string]
  }
}

The JSON must be strictly valid (double quotes, no comments, no trailing
commas) and must always be present, even if mostly empty.`, cvText)
}
