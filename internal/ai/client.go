package ai

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/schema"

	"github.com/akbargherbal/gemini-fusion/internal/ai/component"
	"github.com/akbargherbal/gemini-fusion/internal/config"
)

// Credential is the per-call upstream credential. It lives only for the
// duration of one Open call and the stream it returns.
type Credential struct {
	APIKey string
	Model  string
}

// TokenStream is a lazy, finite, non-restartable sequence of non-empty
// text fragments. Recv returns io.EOF on normal end of sequence and an
// *UpstreamError on mid-stream failure. Close releases the upstream.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Opener opens a token stream against the upstream provider. Satisfied
// by *Client; faked in tests.
type Opener interface {
	Open(ctx context.Context, cred Credential, prompt string) (TokenStream, error)
}

// Client is the token source adapter over eino chat models. It holds
// provider configuration only; every Open builds a fresh model from the
// caller's credential.
type Client struct {
	cfg *config.AIConfig
}

// NewClient creates the adapter.
func NewClient(cfg *config.AIConfig) *Client {
	return &Client{cfg: cfg}
}

// Open starts one streaming generation. A failure here is an open-time
// failure: no fragment has been produced and nothing has reached the
// client yet. The adapter never retries; that decision belongs to the
// caller, which knows whether partial output was already shown.
func (c *Client) Open(ctx context.Context, cred Credential, prompt string) (TokenStream, error) {
	chatModel, err := component.NewChatModel(ctx, c.cfg, cred.APIKey, cred.Model)
	if err != nil {
		return nil, Classify(err)
	}

	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}

	reader, err := chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, Classify(err)
	}

	return &einoStream{reader: reader}, nil
}

// einoStream adapts schema.StreamReader to TokenStream, dropping the
// empty keep-alive chunks some providers emit.
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", Classify(err)
		}
		if msg.Content != "" {
			return msg.Content, nil
		}
	}
}

func (s *einoStream) Close() {
	s.reader.Close()
}

var _ Opener = (*Client)(nil)
