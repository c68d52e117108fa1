package interview

import "fmt"

// SystemPrompt frames every completion request.
const SystemPrompt = "You are a professional interviewer. Avoid greetings and keep it focused."

// FallbackText stands in for model output when a completion fails.
const FallbackText = "Error generating response."

const followupTemplate = `Based on the following interview answer, generate a follow-up question with subtle, natural feedback included.
Do not explicitly state 'Follow-Up Question:' in your response. Keep it natural and conversational.
Answer: %s
`

const evaluationHeader = `Evaluate the following interview transcript. Provide structured feedback in the exact format below:

1. Question: <Question>
   Answer: <User's Answer>
   Score: <Score out of 10>
   Feedback: <Brief one-line feedback>

(as many questions as we have asked)

At the end, include:
Overall Feedback: <Summary of overall performance>
`

func FollowupPrompt(answer string) string {
	return fmt.Sprintf(followupTemplate, answer)
}

func Greeting(username, track string) string {
	return fmt.Sprintf("Hi, how are you, %s? Welcome to the %s interview.", username, track)
}

func Farewell(username string) string {
	return fmt.Sprintf("It was nice meeting you, %s. Goodbye!", username)
}
