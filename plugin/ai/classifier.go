// Package ai provides the LLM-backed semantic time classifier and the
// chat-completion provider it runs on.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ayatoki/kiroku/analyzer"
)

// ChatClient is the minimal chat-completion surface the classifier needs.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// TimeClassifier reconstructs time intervals from notes the pattern table
// could not handle. It implements analyzer.Classifier; all strict output
// validation happens on the analyzer side.
type TimeClassifier struct {
	client ChatClient
}

// NewTimeClassifier creates a classifier on top of client.
func NewTimeClassifier(client ChatClient) *TimeClassifier {
	return &TimeClassifier{client: client}
}

// classificationPrompt instructs the model to emit exactly one JSON object
// matching analyzer.ClassifierResponse.
const classificationPrompt = `あなたは活動記録の時間解析アシスタントです。ユーザーの記録文から活動の開始時刻と終了時刻を推定してください。

ルール:
- 時刻が明示されていればそのまま使い、methodはEXPLICITとする
- 「さっき」「1時間前」のような相対表現は現在時刻から逆算し、methodはRELATIVEとする
- 直近の記録との前後関係から推定した場合、methodはCONTEXTUALとする
- 手がかりがない場合は現在時刻までの30分間とし、methodはINFERRED、confidenceは0.3以下とする
- 時刻はすべてISO-8601のUTCで出力する

次のJSONオブジェクトだけを出力してください。説明文もコードブロックも不要です:
{
  "startTime": "2025-01-01T08:00:00Z",
  "endTime": "2025-01-01T09:00:00Z",
  "confidence": 0.8,
  "method": "EXPLICIT",
  "category": "development",
  "subCategory": "リファクタリング",
  "structuredContent": "時間表現を除いた活動内容"
}

methodはEXPLICIT、RELATIVE、INFERRED、CONTEXTUALのいずれか。
categoryはdevelopment、meeting、research、admin、break、commute、meal、uncategorizedのいずれか。`

// ClassifyTime sends one classification request and parses the reply.
func (c *TimeClassifier) ClassifyTime(ctx context.Context, req *analyzer.ClassifierRequest) (*analyzer.ClassifierResponse, error) {
	if c.client == nil {
		return nil, errors.New("chat client not configured")
	}
	if req == nil {
		return nil, errors.New("nil classifier request")
	}

	raw, err := c.client.Chat(ctx, []Message{
		{Role: "system", Content: classificationPrompt},
		{Role: "user", Content: buildUserPrompt(req)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion failed")
	}

	var resp analyzer.ClassifierResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		return nil, errors.Wrap(err, "classifier returned non-JSON output")
	}
	return &resp, nil
}

// buildUserPrompt renders the request context for one classification turn.
func buildUserPrompt(req *analyzer.ClassifierRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "現在時刻: %s %s\n", req.CurrentTimeDisplay, req.Timezone)
	if len(req.RecentEntries) > 0 {
		b.WriteString("直近の記録:\n")
		for _, entry := range req.RecentEntries {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	if req.HintStart != "" && req.HintEnd != "" {
		fmt.Fprintf(&b, "パターン解析による参考区間: %s から %s\n", req.HintStart, req.HintEnd)
	}
	fmt.Fprintf(&b, "記録文: %s", req.RawInput)
	return b.String()
}

// stripCodeFence unwraps a markdown-fenced reply. Models occasionally wrap
// JSON in a code block despite the instruction not to.
func stripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	if !strings.HasPrefix(response, "```") {
		return response
	}
	lines := strings.Split(response, "\n")
	var jsonLines []string
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			jsonLines = append(jsonLines, line)
		}
	}
	return strings.Join(jsonLines, "\n")
}
