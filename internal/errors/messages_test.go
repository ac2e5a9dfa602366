package errors

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		flow Flow
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			flow: FlowLogin,
			want: "",
		},
		{
			name: "invalid credentials in login",
			err:  InvalidCredentials(),
			flow: FlowLogin,
			want: "Your username or password is incorrect.",
		},
		{
			name: "invalid credentials in signup",
			err:  InvalidCredentials(),
			flow: FlowSignup,
			want: "The sign-up request was not accepted. Check the submitted fields and try again.",
		},
		{
			name: "unauthorized in change password",
			err:  Unauthorized(),
			flow: FlowChangePassword,
			want: "Your current password is incorrect.",
		},
		{
			name: "unauthorized in login",
			err:  Unauthorized(),
			flow: FlowLogin,
			want: "Your username or password is incorrect.",
		},
		{
			name: "account disabled",
			err:  AccountDisabled(),
			flow: FlowLogin,
			want: "Your account has been disabled. Contact an administrator.",
		},
		{
			name: "network",
			err:  Network(nil),
			flow: FlowLogin,
			want: "Unable to reach the server. Check your connection and try again.",
		},
		{
			name: "server message passes through",
			err:  Server(422, "display name already taken"),
			flow: FlowSignup,
			want: "display name already taken",
		},
		{
			name: "policy violation text passes through",
			err:  PolicyViolation("password must contain a digit"),
			flow: FlowChangePassword,
			want: "password must contain a digit",
		},
		{
			name: "cancelled",
			err:  Cancelled(),
			flow: FlowLogin,
			want: "Sign-in was cancelled.",
		},
		{
			name: "rate limited",
			err:  RateLimited(),
			flow: FlowLogin,
			want: "Too many attempts. Wait a moment and try again.",
		},
		{
			name: "non-auth errors fall back to generic login message",
			err:  goerrors.New("dial tcp: connection reset"),
			flow: FlowLogin,
			want: "Unable to sign in. Try again later.",
		},
		{
			name: "non-auth errors fall back to generic signup message",
			err:  goerrors.New("boom"),
			flow: FlowSignup,
			want: "Unable to create your account. Try again later.",
		},
		{
			name: "non-auth errors fall back to generic change-password message",
			err:  goerrors.New("boom"),
			flow: FlowChangePassword,
			want: "Unable to change your password. Try again later.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FlowMessage(tt.err, tt.flow))
		})
	}
}

func TestFlowMessage_NeverLeaksTransportDetail(t *testing.T) {
	t.Parallel()

	err := Network(goerrors.New("dial tcp 10.0.0.5:443: i/o timeout"))
	msg := FlowMessage(err, FlowLogin)
	assert.NotContains(t, msg, "10.0.0.5")
	assert.NotContains(t, msg, "dial tcp")
}
