package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/edgemoorlf/smootie/internal/log"
)

// Config contains the OpenAI-compatible service settings. The defaults in
// internal/config point BaseURL at DashScope's compatible-mode endpoint,
// but any OpenAI-style API works.
type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string
	Logger          log.Logger
}

// OpenAI talks to an OpenAI-compatible API. It implements Completer,
// Transcriber, and Synthesizer.
type OpenAI struct {
	client          openai.Client
	chatModel       string
	transcribeModel string
	speechModel     string
	speechVoice     string
	logger          log.Logger
}

// NewOpenAI creates the adapter. An empty APIKey is allowed so the server
// can start against local OpenAI-compatible runtimes that ignore auth.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.ChatModel == "" {
		return nil, errors.New("chat model is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &OpenAI{
		client:          openai.NewClient(opts...),
		chatModel:       cfg.ChatModel,
		transcribeModel: cfg.TranscribeModel,
		speechModel:     cfg.SpeechModel,
		speechVoice:     cfg.SpeechVoice,
		logger:          logger,
	}, nil
}

// Complete drives one streaming chat completion. Text deltas are yielded
// as they arrive; tool calls are yielded once their argument fragments
// have been fully assembled. The sequence terminates on the provider's
// end-of-stream or on the first error.
func (p *OpenAI) Complete(ctx context.Context, req Request) iter.Seq2[Increment, error] {
	return func(yield func(Increment, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(p.chatModel),
			Messages: toMessageParams(req.Messages),
		}
		if req.Temperature > 0 {
			params.Temperature = openai.Float(req.Temperature)
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(req.MaxTokens)
		}
		if len(req.Tools) > 0 {
			params.Tools = toToolParams(req.Tools)
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer func() {
			if err := stream.Close(); err != nil {
				p.logger.Debug("closing completion stream", "error", err)
			}
		}()

		acc := openai.ChatCompletionAccumulator{}
		finished := make(map[int]bool)

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if tc, ok := acc.JustFinishedToolCall(); ok {
				finished[tc.Index] = true
				call := &ToolCall{Name: tc.Name, Arguments: tc.Arguments}
				if !yield(Increment{ToolCall: call}, nil) {
					return
				}
			}

			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					if !yield(Increment{Text: delta}, nil) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(Increment{}, asProviderError(err))
			return
		}

		// A tool call that was still open when the stream ended never
		// passes through JustFinishedToolCall; pick it up from the
		// accumulated message.
		if len(acc.Choices) > 0 {
			for i, tc := range acc.Choices[0].Message.ToolCalls {
				if finished[i] || tc.Function.Name == "" {
					continue
				}
				call := &ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments}
				if !yield(Increment{ToolCall: call}, nil) {
					return
				}
			}
		}
	}
}

// Transcribe uploads recorded audio and returns the recognized text.
func (p *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, ""),
		Model: openai.AudioModel(p.transcribeModel),
	})
	if err != nil {
		return "", asProviderError(err)
	}

	p.logger.Debug("transcription complete", "chars", len(resp.Text))
	return resp.Text, nil
}

// Synthesize renders text to MP3 audio. The response body is read to
// completion so the returned buffer is final.
func (p *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(p.speechVoice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, asProviderError(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Debug("closing synthesis response", "error", closeErr)
		}
	}()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("reading synthesis response: %v", err)}
	}

	p.logger.Debug("synthesis complete", "bytes", len(audio))
	return audio, nil
}

func toMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toToolParams(tools []Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.Parameters),
				},
			},
		})
	}
	return out
}

// asProviderError maps SDK errors onto the adapter's Error type, keeping
// the remote status code when one was reported.
func asProviderError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		msg := apierr.Message
		if msg == "" {
			msg = apierr.Error()
		}
		return &Error{StatusCode: apierr.StatusCode, Message: msg}
	}
	return &Error{Message: err.Error()}
}
