package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &ses.SendEmailOutput{}, nil
}

func TestSendPasswordReset(t *testing.T) {
	fake := &fakeSES{}
	sender := &SESSender{client: fake, fromEmail: "no-reply@showcase.dev", fromName: "Showcase", baseURL: "https://showcase.dev"}

	require.NoError(t, sender.SendPasswordReset(context.Background(), "ada@example.com", "Ada", "tok+en"))
	require.Len(t, fake.sent, 1)
	in := fake.sent[0]
	assert.Equal(t, "Showcase <no-reply@showcase.dev>", aws.ToString(in.Source))
	assert.Equal(t, []string{"ada@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "https://showcase.dev/reset-password?token=tok%2Ben")
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "Hi Ada")
}

func TestSendPasswordResetWrapsErrors(t *testing.T) {
	sender := &SESSender{client: &fakeSES{err: errors.New("throttled")}, fromEmail: "x@y.z"}
	err := sender.SendPasswordReset(context.Background(), "a@b.c", "", "t")
	assert.ErrorContains(t, err, "throttled")
}
