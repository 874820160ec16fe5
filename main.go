package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cqbridge/adapters"
	"cqbridge/bridge"
	"cqbridge/bridge/types"
	"cqbridge/cache"
	"cqbridge/plugin"
)

var historyFn = filepath.Join(os.TempDir(), ".cqbridge_history")

type appConfig struct {
	Adapter string `yaml:"adapter"` // ob11 / milky

	OB11  *adapters.PlatformAdapterOB11  `yaml:"ob11"`
	Milky *adapters.PlatformAdapterMilky `yaml:"milky"`

	DataDir         string  `yaml:"data_dir"`
	FetchTimeoutSec int     `yaml:"fetch_timeout_sec"`
	FetchPerSec     float64 `yaml:"fetch_per_sec"`
}

func defaultConfig() *appConfig {
	return &appConfig{
		Adapter: "ob11",
		OB11: &adapters.PlatformAdapterOB11{
			WSReverseURL: "ws://127.0.0.1:6700",
		},
		DataDir:         "./data",
		FetchTimeoutSec: 30,
	}
}

func loadConfig(path string) *appConfig {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		zap.S().Warnf("config %s not readable, using defaults: %v", path, err)
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		zap.S().Warnf("config %s malformed, using defaults: %v", path, err)
		return defaultConfig()
	}
	return cfg
}

func initLogger() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	initLogger()
	cfg := loadConfig("config.yaml")

	var session adapters.BotSession
	switch cfg.Adapter {
	case "milky":
		pa := cfg.Milky
		if pa == nil {
			pa = &adapters.PlatformAdapterMilky{}
		}
		go pa.Serve()
		session = pa
	default:
		pa := cfg.OB11
		if pa == nil {
			pa = defaultConfig().OB11
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go pa.Serve(ctx)
		session = pa
	}

	_ = os.MkdirAll(cfg.DataDir, 0o755)
	store, err := cache.OpenStore(filepath.Join(cfg.DataDir, "bridge.db"))
	if err != nil {
		zap.S().Warnf("persistent cache unavailable: %v", err)
	}

	registry := &plugin.Registry{}
	_ = registry.Register(&plugin.Plugin{
		ID:         1,
		Identifier: "console",
		Name:       "Console",
		Filename:   "console",
		AppDir:     filepath.Join(cfg.DataDir, "app", "console"),
		APIVersion: "9.0.0",
	})

	b := bridge.New(session, registry, bridge.Config{
		ImageDir:     filepath.Join(cfg.DataDir, "image"),
		RecordDir:    filepath.Join(cfg.DataDir, "record"),
		FetchTimeout: time.Duration(cfg.FetchTimeoutSec) * time.Second,
		FetchPerSec:  cfg.FetchPerSec,
		Store:        store,
	})
	defer b.Close()

	_, _ = b.RegisterMessageHook("console", types.HookPriorityNormal, func(opID int32, ref *types.MessageRef) types.HookResult {
		fmt.Printf("[msg %d] %s/%d from %d: %s\n", opID, ref.Scene, ref.TargetID, ref.SenderID, ref.Segments.ToText())
		return types.HookResultContinue
	})
	_, _ = b.RegisterRequestHook("console", types.HookPriorityNormal, func(evt *types.RequestEvent) types.HookResult {
		fmt.Printf("[request %s] %s group=%d user=%d: %s\n", evt.Token, evt.Kind, evt.GroupID, evt.UserID, evt.Message)
		return types.HookResultContinue
	})
	_, _ = b.RegisterMemberJoinedHook("console", types.HookPriorityNormal, func(evt *types.MemberJoinedEvent) types.HookResult {
		fmt.Printf("[joined] group=%d user=%d reason=%d\n", evt.GroupID, evt.UserID, evt.Reason)
		return types.HookResultContinue
	})

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFn); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Println("cqbridge console")
	fmt.Println(`type "help" for commands`)

	for {
		text, err := line.Prompt(">>> ")
		if err == liner.ErrPromptAborted {
			fmt.Println("Interrupted")
			break
		}
		if err != nil {
			fmt.Println("Error reading line: ", err)
			break
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		line.AppendHistory(text)
		if !runCommand(b, text) {
			break
		}
	}

	if f, err := os.Create(historyFn); err == nil {
		_, _ = line.WriteHistory(f)
		_ = f.Close()
	}
}

// runCommand 把一行控制台输入映射到插件调用面，返回 false 表示退出
func runCommand(b *bridge.Bridge, text string) bool {
	args := strings.Fields(text)
	cmd, rest := args[0], args[1:]

	i64 := func(n int) int64 {
		if n >= len(rest) {
			return 0
		}
		v, _ := strconv.ParseInt(rest[n], 10, 64)
		return v
	}
	i32 := func(n int) int32 { return int32(i64(n)) }
	tail := func(n int) string {
		if n >= len(rest) {
			return ""
		}
		return strings.Join(rest[n:], " ")
	}
	str := func(n int) string {
		if n >= len(rest) {
			return ""
		}
		return rest[n]
	}

	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		fmt.Println(`sendg <group> <text>      sendp <user> <text>
quote <op> <text>         forward <0|1> <dest> <op>
ban <group> <user> <sec>  kick <group> <user>
leave <group>             card <group> <user> <name>
title <group> <user> <t>  wholeban <group> <0|1>
friends | groups | ginfo <group>
member <group> <user>     members <group>
stranger <user>           whoami
fradd <token> <1|2> [remark]
gradd <token> <1|2> <disp> [reason]
image <handle>            record <handle> [format]
log <priority> <text>     datadir`)
	case "sendg":
		fmt.Println("opId =", b.SendGroupMessage(1, i64(0), tail(1)))
	case "sendp":
		fmt.Println("opId =", b.SendPrivateMessage(1, i64(0), tail(1)))
	case "quote":
		fmt.Println("opId =", b.QuoteMessage(1, i32(0), tail(1)))
	case "forward":
		fmt.Println("opId =", b.ForwardMessage(1, i32(0), i64(1), "", i32(2)))
	case "ban":
		fmt.Println(b.SetGroupBan(1, i64(0), i64(1), i64(2)))
	case "kick":
		fmt.Println(b.SetGroupKick(1, i64(0), i64(1)))
	case "leave":
		fmt.Println(b.SetGroupLeave(1, i64(0)))
	case "card":
		fmt.Println(b.SetGroupCard(1, i64(0), i64(1), tail(2)))
	case "title":
		fmt.Println(b.SetGroupSpecialTitle(1, i64(0), i64(1), tail(2), -1))
	case "wholeban":
		fmt.Println(b.SetGroupWholeBan(1, i64(0), i64(1) != 0))
	case "friends":
		fmt.Println(b.GetFriendList(1))
	case "groups":
		fmt.Println(b.GetGroupList(1))
	case "ginfo":
		fmt.Println(b.GetGroupInfo(1, i64(0)))
	case "member":
		fmt.Println(b.GetGroupMemberInfo(1, i64(0), i64(1)))
	case "members":
		fmt.Println(b.GetGroupMemberList(1, i64(0)))
	case "stranger":
		fmt.Println(b.GetStrangerInfo(1, i64(0)))
	case "whoami":
		fmt.Printf("%d %s\n", b.GetLoginID(1), b.GetLoginNick(1))
	case "fradd":
		fmt.Println(b.SetFriendAddRequest(1, str(0), i32(1), tail(2)))
	case "gradd":
		fmt.Println(b.SetGroupAddRequest(1, str(0), i32(1), i32(2), tail(3)))
	case "image":
		fmt.Println(b.GetImage(1, str(0)))
	case "record":
		format := str(1)
		if format == "" {
			format = "silk"
		}
		fmt.Println(b.GetRecord(1, str(0), format))
	case "log":
		b.AddLog(1, int(i64(0)), "console", tail(1))
	case "datadir":
		fmt.Println(b.GetPluginDataDir(1))
	default:
		fmt.Println("unknown command, try \"help\"")
	}
	return true
}
