package linkedin

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/socialgate/internal/provider"
	"github.com/dropDatabas3/socialgate/internal/session"
)

// Tipos del payload UGC de LinkedIn. Los nombres de campo siguen el wire
// format de /v2/ugcPosts.

type shareCommentary struct {
	Text string `json:"text"`
}

type mediaItem struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []mediaItem     `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// BuildPost arma el UGC post determinísticamente: la forma depende solo de si
// el caller mandó url (ARTICLE con media adjunta) o no (NONE, texto plano).
func (l *LinkedIn) BuildPost(sess *session.Session, in provider.PostInput) (any, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("missing 'text' in post body")
	}

	content := shareContent{
		ShareCommentary:    shareCommentary{Text: in.Text},
		ShareMediaCategory: "NONE",
	}
	if in.URL != "" {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []mediaItem{{Status: "READY", OriginalURL: in.URL}}
	}

	return &ugcPost{
		Author:         sess.UserURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": content,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}, nil
}
