package clients

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// TextractOCR implements OCR over Textract's async text-detection API.
type TextractOCR struct {
	client   *textract.Client
	roleARN  string
	topicARN string
}

// NewTextractOCR creates an OCR client. Completion notifications for
// started jobs are published to topicARN using roleARN.
func NewTextractOCR(cfg aws.Config, roleARN, topicARN string) *TextractOCR {
	return &TextractOCR{
		client:   textract.NewFromConfig(cfg),
		roleARN:  roleARN,
		topicARN: topicARN,
	}
}

func (t *TextractOCR) StartTextDetection(ctx context.Context, bucket, key string) (string, error) {
	out, err := t.client.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		NotificationChannel: &types.NotificationChannel{
			RoleArn:     aws.String(t.roleARN),
			SNSTopicArn: aws.String(t.topicARN),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to start text detection: %w", err)
	}

	return aws.ToString(out.JobId), nil
}

func (t *TextractOCR) GetTextDetection(ctx context.Context, taskID string) (*TextDetectionResult, error) {
	result := &TextDetectionResult{}

	var nextToken *string
	for {
		out, err := t.client.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:     aws.String(taskID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get text detection result: %w", err)
		}

		result.Status = string(out.JobStatus)

		for _, block := range out.Blocks {
			if block.BlockType != types.BlockTypeLine {
				continue
			}
			result.Lines = append(result.Lines, Line{
				Text:       aws.ToString(block.Text),
				Confidence: float64(aws.ToFloat32(block.Confidence)),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return result, nil
}
