package service

import (
	"fmt"
	"strings"
)

// User-facing reply copy. Grouped here so the dispatcher reads as control
// flow only.
const (
	replyHelp = "「哔哔秘笈」\n" +
		"==================\n" +
		"/l 查询最近 10 条哔哔\n" +
		"/l 数字 - 查询最近前几条，如 /l3\n" +
		"---------------\n" +
		"/a 文字 - 最新一条原内容后追加文字\n" +
		"/a 数字 文字 - 第几条原内容后追加文字，如 /a3 开心！\n" +
		"---------------\n" +
		"/f 文字 - 最新一条原内容前插入文字\n" +
		"/f 数字 文字 - 第几条原内容前插入文字，如 /f3 开心！\n" +
		"---------------\n" +
		"/s 关键词 - 搜索内容\n" +
		"---------------\n" +
		"/d 数字 - 删除第几条，如 /d2\n" +
		"---------------\n" +
		"/e 文字 - 编辑替换第 1 条\n" +
		"/e 数字 文字 - 编辑替换第几条，如 /e2 新内容\n" +
		"---------------\n" +
		"/nobb - 解除绑定"

	replyUnknownCommand = "无效的指令，请回复 /h 获取帮助"
	replyInvalidIndex   = "无效的序号"
	replyTryAgain       = "服务开小差了，请稍后再试！"

	replyNotBound      = "您未完成绑定，无法使用该指令。回复以下命令绑定用户：/b 环境变量Binding_Key"
	replyBindOK        = "绑定成功，直接发「文字」或「图片」试试吧！\n---------------\n回复 /h 获取更多秘笈"
	replyBindFailed    = "本次绑定校验不通过，请回复以下命令绑定用户：/b 环境变量Binding_Key"
	replyUnbindOK      = "您已成功解除绑定"
	replyUnbindMissing = "您还未绑定，无需解除绑定。回复以下命令绑定用户：/b 环境变量Binding_Key"

	replyListEmpty     = "还没有哔哔，快发一条试试吧！"
	replySearchMissing = "无效的指令，请输入 /s 关键词查询"
	replyAppendUsage   = `无效的指令，请输入 "/a 内容"，追加内容到第 1 条`
	replyPrependUsage  = `无效的指令，请输入 "/f 内容"，插入内容到第 1 条`
	replyDeleteUsage   = "无效的参数，请输入 /d 数字以删除指定哔哔"
	replyDeletePending = "正在删除，请稍候..."
	replyDeleteOK      = "删除成功"

	replySubscribe   = "欢迎关注哔哔闪念！\n\n了解哔哔闪念搭建方法，请查阅： https://blog.guole.fun/posts/17745/"
	replyUnsubscribe = "您已取消关注，期待下次再见！"
	replyUnsupported = "暂不支持该类型消息"

	replyImageAck = "图片发送成功，正在上传处理..."
	replyVoiceAck = "语音发送成功，正在上传处理..."
	replyVideoAck = "视频发送成功，正在上传处理..."
)

const (
	publishDivider   = "\n-----------------\n"
	publishBaseHint  = "使用 /f 指令可原内容前插入文字"
	publishMoreHint  = "，使用 /a 指令可原内容后追加文字"
	searchResultCap  = 10
	searchTruncateAt = 35
)

func publishReply(kind, content string) string {
	switch kind {
	case "image":
		return fmt.Sprintf("发图哔哔成功（%s）%s%s", publishBaseHint, publishDivider, content)
	case "voice":
		return "发语音哔哔成功" + publishDivider + publishBaseHint
	case "video":
		return "发视频哔哔成功" + publishDivider + publishBaseHint
	case "shortvideo":
		return "发小视频哔哔成功" + publishDivider + publishBaseHint
	case "location":
		return "发位置哔哔成功" + publishDivider + publishBaseHint
	case "link":
		return "发链接哔哔成功" + publishDivider + publishBaseHint
	case "text":
		return "哔哔成功" + publishDivider + publishBaseHint + publishMoreHint
	default:
		return fmt.Sprintf("发布%s类型内容成功%s%s%s", kind, publishDivider, publishBaseHint, publishMoreHint)
	}
}

func mediaAck(msgType string) string {
	switch msgType {
	case "voice":
		return replyVoiceAck
	case "video", "shortvideo":
		return replyVideoAck
	default:
		return replyImageAck
	}
}

func renderList(contents []string) string {
	if len(contents) == 0 {
		return replyListEmpty
	}
	var b strings.Builder
	fmt.Fprintf(&b, "最近 %d 条哔哔：\n", len(contents))
	for i, content := range contents {
		fmt.Fprintf(&b, "%d. %s\n", i+1, content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSearch shows up to searchResultCap hits. Oversized result sets are
// announced as partial and each entry is cut at searchTruncateAt runes.
func renderSearch(keyword string, contents []string) string {
	if len(contents) == 0 {
		return fmt.Sprintf("没有搜索到包含「%s」的哔哔", keyword)
	}
	var b strings.Builder
	if len(contents) > searchResultCap {
		fmt.Fprintf(&b, "搜索到 %d 条包含「%s」的哔哔，仅显示最新 %d 条：\n", len(contents), keyword, searchResultCap)
		for i, content := range contents[:searchResultCap] {
			fmt.Fprintf(&b, "%d. %s\n", i+1, truncateRunes(content, searchTruncateAt))
		}
	} else {
		fmt.Fprintf(&b, "搜索到 %d 条包含「%s」的哔哔：\n", len(contents), keyword)
		for i, content := range contents {
			fmt.Fprintf(&b, "%d. %s\n", i+1, content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
