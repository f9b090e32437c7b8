package web

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	appi18n "intradesk/i18n"
)

// I18nMiddleware 解析请求的 Accept-Language 头并设置到上下文
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		acceptLang := c.GetHeader("Accept-Language")
		lang := parseAcceptLanguage(acceptLang)

		c.Set("language", lang)
		c.Set("localizer", appi18n.GetLocalizer(lang))

		c.Next()
	}
}

// parseAcceptLanguage 解析 Accept-Language 头
// 示例: "zh-CN,zh;q=0.9,en;q=0.8" -> "zh-CN"
func parseAcceptLanguage(acceptLang string) string {
	if acceptLang == "" {
		return "zh-CN"
	}

	langs := strings.Split(acceptLang, ",")
	if len(langs) == 0 {
		return "zh-CN"
	}

	// 取优先级最高的第一个语言
	firstLang := strings.TrimSpace(langs[0])

	// 去除权重参数 (;q=0.9)
	if idx := strings.Index(firstLang, ";"); idx != -1 {
		firstLang = firstLang[:idx]
	}

	return normalizeLanguage(strings.TrimSpace(firstLang))
}

// normalizeLanguage 标准化语言代码
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(lang)

	switch {
	case strings.HasPrefix(lang, "zh"):
		return "zh-CN"
	case strings.HasPrefix(lang, "en"):
		return "en-US"
	case strings.HasPrefix(lang, "hi"):
		// 印地语暂未提供翻译，回退英文
		return "en-US"
	default:
		return "zh-CN"
	}
}

// GetLocalizer 从上下文获取 Localizer
func GetLocalizer(c *gin.Context) *i18n.Localizer {
	if localizer, exists := c.Get("localizer"); exists {
		if l, ok := localizer.(*i18n.Localizer); ok {
			return l
		}
	}
	return appi18n.GetLocalizer("zh-CN")
}

// GetLanguage 从上下文获取语言
func GetLanguage(c *gin.Context) string {
	if lang, exists := c.Get("language"); exists {
		if l, ok := lang.(string); ok {
			return l
		}
	}
	return "zh-CN"
}

// T 翻译消息（按请求语言，未命中时原样返回 key）
func T(c *gin.Context, key string, data ...interface{}) string {
	lang := GetLanguage(c)
	return appi18n.TWithLang(lang, key, data...)
}
