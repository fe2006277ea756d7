package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderList(t *testing.T) {
	assert.Equal(t, replyListEmpty, renderList(nil))

	out := renderList([]string{"newest", "older"})
	assert.Contains(t, out, "最近 2 条哔哔")
	assert.Contains(t, out, "1. newest")
	assert.Contains(t, out, "2. older")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRenderSearch_Empty(t *testing.T) {
	out := renderSearch("kw", nil)
	assert.Contains(t, out, "没有搜索到包含「kw」的哔哔")
}

func TestRenderSearch_AtCapShowsFullContent(t *testing.T) {
	long := strings.Repeat("甲", 50)
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = long
	}
	out := renderSearch("甲", contents)
	assert.Contains(t, out, "搜索到 10 条包含「甲」的哔哔：")
	assert.NotContains(t, out, "仅显示")
	assert.Contains(t, out, "10. "+long)
	assert.NotContains(t, out, "...")
}

func TestRenderSearch_OverCapTruncates(t *testing.T) {
	long := strings.Repeat("甲", 50)
	contents := make([]string, 11)
	for i := range contents {
		contents[i] = fmt.Sprintf("%d-%s", i, long)
	}
	out := renderSearch("甲", contents)
	assert.Contains(t, out, "搜索到 11 条包含「甲」的哔哔，仅显示最新 10 条：")
	assert.Contains(t, out, "10. ")
	assert.NotContains(t, out, "11. ")
	for _, line := range strings.Split(out, "\n")[1:] {
		assert.True(t, strings.HasSuffix(line, "..."))
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 35))
	exact := strings.Repeat("乙", 35)
	assert.Equal(t, exact, truncateRunes(exact, 35))
	over := strings.Repeat("乙", 36)
	assert.Equal(t, strings.Repeat("乙", 35)+"...", truncateRunes(over, 35))
}

func TestPublishReply(t *testing.T) {
	assert.Contains(t, publishReply("text", "hi"), "哔哔成功")
	assert.Contains(t, publishReply("text", "hi"), publishMoreHint)
	assert.Contains(t, publishReply("image", "https://x/y.jpg"), "发图哔哔成功")
	assert.Contains(t, publishReply("image", "https://x/y.jpg"), "https://x/y.jpg")
	assert.Contains(t, publishReply("voice", ""), "发语音哔哔成功")
	assert.Contains(t, publishReply("video", ""), "发视频哔哔成功")
	assert.Contains(t, publishReply("location", ""), "发位置哔哔成功")
	assert.Contains(t, publishReply("link", ""), "发链接哔哔成功")
}

func TestMediaAck(t *testing.T) {
	assert.Equal(t, replyImageAck, mediaAck("image"))
	assert.Equal(t, replyVoiceAck, mediaAck("voice"))
	assert.Equal(t, replyVideoAck, mediaAck("video"))
	assert.Equal(t, replyVideoAck, mediaAck("shortvideo"))
}
