package errors

import goerrors "errors"

// Flow identifies which user-facing flow an error surfaced in. The same
// error value maps to different messages per flow; the mapping is a pure
// function of (error, flow) and is never embedded in the error itself.
type Flow string

const (
	FlowLogin          Flow = "login"
	FlowSignup         Flow = "signup"
	FlowChangePassword Flow = "change_password"
)

// FlowMessage derives the user-visible message for an error in the context
// of a flow. Unknown errors fall back to a generic message so raw transport
// detail never reaches the user.
func FlowMessage(err error, flow Flow) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if !goerrors.As(err, &ae) {
		return genericMessage(flow)
	}

	switch ae.Code {
	case CodeInvalidCredentials:
		if flow == FlowSignup {
			return "The sign-up request was not accepted. Check the submitted fields and try again."
		}
		return "Your username or password is incorrect."
	case CodeUnauthorized:
		switch flow {
		case FlowChangePassword:
			return "Your current password is incorrect."
		case FlowSignup:
			return "You are not authorized to create an account on this server."
		default:
			return "Your username or password is incorrect."
		}
	case CodeAccountDisabled:
		return "Your account has been disabled. Contact an administrator."
	case CodeNetwork:
		return "Unable to reach the server. Check your connection and try again."
	case CodeServer:
		if ae.Message != "" {
			return ae.Message
		}
		return genericMessage(flow)
	case CodeDecoding:
		return "The server sent an unexpected response. Contact an administrator."
	case CodePolicyViolation:
		return ae.Message
	case CodeCancelled:
		return "Sign-in was cancelled."
	case CodeRateLimited:
		return "Too many attempts. Wait a moment and try again."
	case CodeUnimplemented:
		return ae.Message
	default:
		return genericMessage(flow)
	}
}

func genericMessage(flow Flow) string {
	switch flow {
	case FlowSignup:
		return "Unable to create your account. Try again later."
	case FlowChangePassword:
		return "Unable to change your password. Try again later."
	default:
		return "Unable to sign in. Try again later."
	}
}
