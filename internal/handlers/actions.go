package handlers

// Action types for logging user activity
const (
	ActionCommandStart    = "command_start"
	ActionCommandHelp     = "command_help"
	ActionCommandFeedback = "command_feedback"
	ActionCommandRate     = "command_rate"
	ActionCommandList     = "command_list"
	ActionCommandStats    = "command_stats"
	ActionCommandLogin    = "command_login"
	ActionCommandLogout   = "command_logout"
	ActionCommandSkip     = "command_skip"
	ActionCommandCancel   = "command_cancel"
	ActionFormName        = "form_name"
	ActionFormRating      = "form_rating"
	ActionSendFeedback    = "send_feedback"
)
