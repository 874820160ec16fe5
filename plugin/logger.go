package plugin

import "go.uber.org/zap"

// 插件侧日志优先级，沿用旧 ABI 的数值
const (
	LogDebug    = 0
	LogInfo     = 10
	LogInfoSucc = 11
	LogInfoRecv = 12
	LogInfoSend = 13
	LogWarning  = 20
	LogError    = 21
	LogFatal    = 22
)

// Log 把插件提交的日志行映射到宿主日志器
func Log(p *Plugin, priority int, category string, content string) {
	log := zap.S().Named("plugin")

	prefix := "[" + p.DisplayName()
	if category != "" {
		prefix += " " + category
	}
	line := prefix + "] " + content

	switch priority {
	case LogDebug:
		log.Debug(line)
	case LogInfo, LogInfoSucc, LogInfoRecv, LogInfoSend:
		log.Info(line)
	case LogWarning:
		log.Warn(line)
	case LogError:
		log.Error(line)
	case LogFatal:
		log.Error("[FATAL] " + line)
	default:
		log.Info(line)
	}
}
