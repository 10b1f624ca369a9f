package ai

import (
	"context"
	"strings"
)

// MockAdapter provides deterministic local replies when no gateway is
// configured. It walks the interview stages by user-turn count so the whole
// flow, including final-output extraction, can be exercised offline.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	select {
	case <-ctx.Done():
		return ChatResponse{}, ctx.Err()
	default:
	}

	userTurns := 0
	lastUser := ""
	for _, m := range req.Messages {
		if m.Role == "user" {
			userTurns++
			lastUser = m.Content
		}
	}

	switch {
	case userTurns <= 1:
		return ChatResponse{Text: "נעים מאוד! ספר לי איפה אתה רואה את עצמך בעוד 3–5 שנים?"}, nil
	case userTurns == 2:
		return ChatResponse{Text: "מעניין. איך זה נראה ביום שלישי בבוקר? " + strings.TrimSpace(lastUser)}, nil
	case userTurns == 3:
		return ChatResponse{Text: "זיהיתי כמה תחומים מרכזיים:\n• קריירה\n• בית ומשפחה\n\nזה מדויק?"}, nil
	case userTurns == 4:
		return ChatResponse{Text: "בוא נהפוך כל חלום לפעולה מדידה או הרגל קבוע. נתחיל בקריירה?"}, nil
	default:
		return ChatResponse{Text: mockFinalOutput}, nil
	}
}

const mockFinalOutput = `**[חלק 1: נרטיב אישי]**
אני קם בבוקר בבית שקט, פותח את המחשב ומתחיל יום של עבודה משמעותית.

**[חלק 2: Vision Board תפעולי]**

**[קריירה]**
- תמונת מצב: עובד מהבית על פרויקטים שבחרתי
- פעולה 1: פגישת לקוח אחת בשבוע
- פעולה 2: כתיבת פוסט מקצועי פעם בחודש
- שגרה קבועה: שעת למידה כל בוקר

**[בית ומשפחה]**
- תמונת מצב: ארוחת ערב משפחתית בכל יום
- פעולה 1: טיול משפחתי אחת לחודש
- שגרה קבועה: ערב ללא מסכים פעמיים בשבוע`
