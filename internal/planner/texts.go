package planner

import "github.com/flux-life/flux-planner/internal/domain"

// goalKeywords mark a supported health and fitness goal.
var goalKeywords = []string{"lose weight", "weight", "fitness", "gym", "wedding", "health"}

// affirmativeKeywords confirm a proposed plan.
var affirmativeKeywords = []string{"yes", "good", "great", "perfect", "confirm", "lock", "love", "looks good"}

// Suggested quick replies offered to the user.
const (
	SuggestGoalAction = "Suggest a goal"
	LooksGoodAction   = "Looks good!"
)

// SuggestedTarget is recorded as the target when the user asks for a
// suggestion. The model's suggestion is only conversational text and is not
// parsed back, so this value carries no data.
const SuggestedTarget = "Healthy target suggested by AI"

const (
	startOutOfScopeMessage = "That's a wonderful goal! 🎯 Right now I'm best at helping with " +
		"health & fitness goals. Could you tell me more about a health or " +
		"fitness goal you'd like to achieve?"

	idleOutOfScopeMessage = "I'd love to help! For now I specialize in health & fitness goals. " +
		"Tell me about a health-related goal and let's build a plan! 💪"

	planReadyMessage = "I've put together a personalized 6-week plan based on our conversation! 🎯\n\n" +
		"Here's what I've designed for you. Take a look and let me know if you'd like " +
		"to adjust anything, or say **'Looks good!'** to lock it in."

	confirmedMessage = "Awesome! Your plan is locked in! 🎉\n\n" +
		"I've created your goal, milestones, and recurring tasks. " +
		"You'll see them on your calendar. Let's crush this together! 💪"

	completedMessage = "This conversation has already been completed. Start a new one to set another goal!"

	genericFallback = "Tell me more about your goal!"
)

var fallbackReplies = map[domain.ConversationState]string{
	domain.StateGatheringTimeline:     "That's a great goal! 💪 When is the event or target date?",
	domain.StateGatheringCurrentState: "Got it! What do you currently weigh, if you don't mind sharing?",
	domain.StateGatheringTarget:       "And what's your target weight? Or should I suggest a healthy goal?",
	domain.StateGatheringPreferences:  "Do you prefer gym, home workouts, or mostly diet changes?",
}

// FallbackReply returns the canned reply used in state when the model fails.
func FallbackReply(state domain.ConversationState) string {
	if text, ok := fallbackReplies[state]; ok {
		return text
	}
	return genericFallback
}
