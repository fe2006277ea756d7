package wechat

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAESKey = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQ"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("testtoken", testAESKey)
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RejectsBadKey(t *testing.T) {
	_, err := NewCodec("token", "tooshort")
	require.Error(t, err)
	_, err = NewCodec("", testAESKey)
	require.Error(t, err)
}

func TestVerifyHandshake_AcceptsComputedSignature(t *testing.T) {
	codec := newTestCodec(t)
	timestamp := "1700000000"
	nonce := "12345"

	parts := []string{"testtoken", timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	signature := hex.EncodeToString(sum[:])

	require.True(t, codec.VerifyHandshake(signature, timestamp, nonce))
}

func TestVerifyHandshake_RejectsAnyMutation(t *testing.T) {
	codec := newTestCodec(t)
	timestamp := "1700000000"
	nonce := "98765"
	signature := codec.Signature(timestamp, nonce)

	require.True(t, codec.VerifyHandshake(signature, timestamp, nonce))

	mutate := func(s string) string {
		b := []byte(s)
		if b[0] == 'x' {
			b[0] = 'y'
		} else {
			b[0] = 'x'
		}
		return string(b)
	}
	require.False(t, codec.VerifyHandshake(mutate(signature), timestamp, nonce))
	require.False(t, codec.VerifyHandshake(signature, mutate(timestamp), nonce))
	require.False(t, codec.VerifyHandshake(signature, timestamp, mutate(nonce)))

	other, err := NewCodec("othertoken", testAESKey)
	require.NoError(t, err)
	require.False(t, other.VerifyHandshake(signature, timestamp, nonce))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	for _, msg := range []string{"", "hello", "哔哔一条新内容", strings.Repeat("x", 1000)} {
		encrypted, err := codec.Encrypt(msg)
		require.NoError(t, err)
		_, err = base64.StdEncoding.DecodeString(encrypted)
		require.NoError(t, err)

		plain, err := codec.Decrypt(encrypted)
		require.NoError(t, err)
		require.Equal(t, msg, plain)
	}
}

func TestDecrypt_RejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)
	_, err := codec.Decrypt("not-base64!!!")
	require.Error(t, err)
	_, err = codec.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestEncryptedReply_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	reply := "哔哔成功\n-----------------\n使用 /f 指令可原内容前插入文字"
	envelope, err := codec.EncryptedReply(reply, "user-open-id", "gh_account", time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Contains(t, envelope, "<ToUserName><![CDATA[user-open-id]]></ToUserName>")
	require.Contains(t, envelope, "<CreateTime>1700000000</CreateTime>")
	require.Contains(t, envelope, "<MsgType><![CDATA[text]]></MsgType>")

	plain, err := codec.DecryptReply([]byte(envelope))
	require.NoError(t, err)
	require.Equal(t, reply, plain)
}

func TestEncryptedReply_SignatureCoversEncryptedBody(t *testing.T) {
	codec := newTestCodec(t)
	envelope, err := codec.EncryptedReply("hi", "to", "from", time.Unix(1700000000, 0))
	require.NoError(t, err)

	tampered := strings.Replace(envelope, "<CreateTime>1700000000</CreateTime>", "<CreateTime>1700000001</CreateTime>", 1)
	_, err = codec.DecryptReply([]byte(tampered))
	require.Error(t, err)
}

func TestCDATASafe(t *testing.T) {
	require.Equal(t, "plain", cdataSafe("plain"))
	require.NotContains(t, "<![CDATA["+cdataSafe("evil]]>payload")+"]]>", "evil]]>payload")
}
