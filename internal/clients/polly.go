package clients

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// PollySpeech implements Speech over Polly's async synthesis-task API.
type PollySpeech struct {
	client   *polly.Client
	topicARN string
	voice    string
}

// NewPollySpeech creates a Speech client. Task completions are published to
// topicARN.
func NewPollySpeech(cfg aws.Config, topicARN, voice string) *PollySpeech {
	if voice == "" {
		voice = "Ivy"
	}
	return &PollySpeech{
		client:   polly.NewFromConfig(cfg),
		topicARN: topicARN,
		voice:    voice,
	}
}

func (p *PollySpeech) StartSynthesis(ctx context.Context, text, bucket, keyPrefix string) (string, error) {
	out, err := p.client.StartSpeechSynthesisTask(ctx, &polly.StartSpeechSynthesisTaskInput{
		OutputFormat:       types.OutputFormatMp3,
		OutputS3BucketName: aws.String(bucket),
		OutputS3KeyPrefix:  aws.String(keyPrefix),
		Text:               aws.String(text),
		VoiceId:            types.VoiceId(p.voice),
		SnsTopicArn:        aws.String(p.topicARN),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start speech synthesis: %w", err)
	}

	if out.SynthesisTask == nil {
		return "", fmt.Errorf("speech synthesis response carried no task")
	}

	return aws.ToString(out.SynthesisTask.TaskId), nil
}
