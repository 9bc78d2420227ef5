package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/scttfrdmn/chatmem/chatmem"
)

// BedrockConfig configures a Bedrock adapter.
type BedrockConfig struct {
	// ModelID is the Bedrock model identifier
	// (default: anthropic.claude-3-5-sonnet-20241022-v2:0).
	ModelID string
	// Region is the AWS region (default: us-east-1).
	Region string
	// Profile is an optional shared-config profile name.
	Profile string
	// Explicit credentials; when unset the default AWS credential chain
	// applies.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// EndpointURL overrides the service endpoint (for testing).
	EndpointURL string
}

// BedrockClient is an adapter for models served through the Amazon Bedrock
// Converse API.
//
// Example:
//
//	client, err := llm.NewBedrockClient(ctx, llm.BedrockConfig{Region: "us-west-2"})
//	reply, err := client.Complete(ctx, messages)
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient creates a new Bedrock adapter.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig) (*BedrockClient, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}

	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(awsConfig, clientOpts...),
		modelID: cfg.ModelID,
	}, nil
}

// Model returns the model identifier.
func (b *BedrockClient) Model() string {
	return b.modelID
}

// Complete generates a completion via the Converse API.
func (b *BedrockClient) Complete(ctx context.Context, messages []*chatmem.Message, opts ...CallOption) (*chatmem.Message, error) {
	options := BuildCallOptions(opts...)

	bedrockMessages, systemPrompts := b.convertMessages(messages)

	inferenceConfig := &types.InferenceConfiguration{}
	if options.Temperature != nil {
		inferenceConfig.Temperature = aws.Float32(float32(*options.Temperature))
	}
	maxTokens := 4096
	if options.MaxTokens != nil {
		maxTokens = *options.MaxTokens
	}
	inferenceConfig.MaxTokens = aws.Int32(int32(maxTokens))
	if options.TopP != nil {
		inferenceConfig.TopP = aws.Float32(float32(*options.TopP))
	}
	if stopSeq, ok := options.Extra["stop_sequences"].([]string); ok && len(stopSeq) > 0 {
		inferenceConfig.StopSequences = stopSeq
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(b.modelID),
		Messages:        bedrockMessages,
		InferenceConfig: inferenceConfig,
	}
	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	output, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock api error: %w", err)
	}

	var content string
	if output.Output != nil {
		if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
			for _, block := range msg.Value.Content {
				if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
					content += textBlock.Value
				}
			}
		}
	}

	response := chatmem.NewMessage(chatmem.RoleAssistant, content)
	response.Metadata["model"] = b.modelID
	if output.Usage != nil {
		chatmem.AttachUsage(response, &chatmem.Usage{
			PromptTokens:     int(aws.ToInt32(output.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(output.Usage.TotalTokens)),
		})
	}
	if output.StopReason != "" {
		response.Metadata["stop_reason"] = string(output.StopReason)
	}
	return response, nil
}

// convertMessages converts chatmem messages to Converse format. System
// messages are carried in the dedicated system parameter rather than the
// message list.
func (b *BedrockClient) convertMessages(messages []*chatmem.Message) ([]types.Message, []types.SystemContentBlock) {
	var bedrockMessages []types.Message
	var systemPrompts []types.SystemContentBlock

	for _, msg := range messages {
		if msg.Role == chatmem.RoleSystem {
			systemPrompts = append(systemPrompts, &types.SystemContentBlockMemberText{
				Value: msg.Content,
			})
			continue
		}

		role := types.ConversationRoleAssistant
		if msg.Role == chatmem.RoleUser {
			role = types.ConversationRoleUser
		}
		bedrockMessages = append(bedrockMessages, types.Message{
			Role: role,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: msg.Content},
			},
		})
	}
	return bedrockMessages, systemPrompts
}
