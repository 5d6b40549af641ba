package completion

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	workflowprompt "github.com/danglinh9623-svg/MuseFlow/internal/workflow/prompt"
)

// fakeChatModel 按脚本返回结果并记录最后一次调用
type fakeChatModel struct {
	mu sync.Mutex

	chunks    []string
	streamErr error
	midErr    error

	reply  string
	genErr error

	// gate 非空时 Generate 阻塞到 gate 关闭或 ctx 结束，开始阻塞时向 started 发信号
	gate    chan struct{}
	started chan struct{}

	calls     int
	lastInput []*schema.Message
	lastOpts  *model.Options
}

func (f *fakeChatModel) record(input []*schema.Message, opts []model.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastInput = input
	f.lastOpts = model.GetCommonOptions(&model.Options{}, opts...)
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.record(input, opts)
	if f.gate != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.genErr != nil {
		return nil, f.genErr
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input, opts)
	if f.streamErr != nil {
		return nil, f.streamErr
	}

	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	if f.midErr == nil {
		return schema.StreamReaderFromArray(msgs), nil
	}

	sr, sw := schema.Pipe[*schema.Message](len(msgs) + 1)
	go func() {
		defer sw.Close()
		for _, m := range msgs {
			sw.Send(m, nil)
		}
		sw.Send(nil, f.midErr)
	}()
	return sr, nil
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "gemini",
			ChatModels: []config.ChatModelOption{
				{ID: "creative", Model: "gemini-3-pro-preview", Label: "Pro (Creative)"},
				{ID: "fast", Model: "gemini-3-flash-preview", Label: "Flash (Fast)"},
			},
			DefaultModel:    "creative",
			TitleModel:      "fast",
			SuggestionModel: "creative",
			Chat:            config.GenerationParams{Temperature: 0.9, TopP: 0.95, TopK: 64},
			Suggestion:      config.GenerationParams{Temperature: 1.0},
		},
	}
}

func newTestClient(m *fakeChatModel) *Client {
	return NewClient(&fakeFactory{model: m}, workflowprompt.NewRegistry(), testConfig())
}
