package render

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/courier/internal/domain"
)

// Personalizer renders Liquid placeholders like {{ first_name | default:
// "there" }} against per-recipient data. Parsed templates are cached by
// content so a campaign body is compiled once per send, not once per
// recipient.
type Personalizer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewPersonalizer creates the engine and registers the custom filters.
func NewPersonalizer() *Personalizer {
	engine := liquid.NewEngine()

	// {{ first_name | default: "Friend" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ name | capitalize }}
	engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// {{ email | urlencode }}
	engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	// {{ user_input | escape }}
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})

	return &Personalizer{engine: engine}
}

// Render applies recipient data to a template string. A malformed template
// returns the error; missing variables render as empty, which is the right
// failure mode mid-send.
func (p *Personalizer) Render(content string, data map[string]interface{}) (string, error) {
	if !strings.Contains(content, "{{") && !strings.Contains(content, "{%") {
		return content, nil
	}

	var tpl *liquid.Template
	if cached, ok := p.cache.Load(content); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := p.engine.ParseString(content)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		p.cache.Store(content, parsed)
		tpl = parsed
	}

	out, err := tpl.RenderString(data)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// SubscriberData builds the variable map exposed to templates for one
// recipient.
func SubscriberData(sub *domain.Subscriber, list *domain.List) map[string]interface{} {
	data := map[string]interface{}{
		"email":      sub.Email,
		"first_name": sub.FirstName,
		"last_name":  sub.LastName,
	}
	if list != nil {
		data["list_name"] = list.Name
	}
	return data
}
