package extract_test

import (
	"context"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-extract/cfb/cfbtest"
	"doc-extract/config"
	"doc-extract/extract"
)

func msgUTF16(s string) []byte {
	u := utf16.Encode([]rune(s))
	out := make([]byte, len(u)*2)
	for i, cu := range u {
		binary.LittleEndian.PutUint16(out[i*2:], cu)
	}
	return out
}

func buildTestMsg() []byte {
	b := &cfbtest.Builder{
		Streams: []cfbtest.Stream{
			{Name: "__substg1.0_0037001F", Data: msgUTF16("Test Email Subject")},
			{Name: "__substg1.0_1000001F", Data: msgUTF16("Message body goes here.")},
			{Name: "__substg1.0_0C1F001E", Data: []byte("sender@example.com\x00")},
		},
		Storages: []cfbtest.Storage{
			{Name: "__recip_version1.0_#00000000", Streams: []cfbtest.Stream{
				{Name: "__substg1.0_39FE001F", Data: msgUTF16("to@example.com")},
			}},
			{Name: "__attach_version1.0_#00000000", Streams: []cfbtest.Stream{
				{Name: "__substg1.0_3707001F", Data: msgUTF16("one.txt")},
				{Name: "__substg1.0_37010102", Data: []byte("first")},
			}},
			{Name: "__attach_version1.0_#00000001", Streams: []cfbtest.Stream{
				{Name: "__substg1.0_3707001F", Data: msgUTF16("two.csv")},
				{Name: "__substg1.0_37010102", Data: []byte("a,b")},
			}},
			{Name: "__attach_version1.0_#00000002", Streams: []cfbtest.Stream{
				{Name: "__substg1.0_3707001F", Data: msgUTF16("three.png")},
				{Name: "__substg1.0_37010102", Data: []byte{0x89, 0x50, 0x4E, 0x47}},
			}},
		},
	}
	return b.Bytes()
}

func TestExtractMsg(t *testing.T) {
	svc := newService(t, nil)

	res, err := svc.Extract(context.Background(), buildTestMsg(), "", "mail.msg")
	require.NoError(t, err)

	assert.Contains(t, res.Content, "Subject: Test Email Subject")
	assert.Contains(t, res.Content, "From: sender@example.com")
	assert.Contains(t, res.Content, "To: to@example.com")
	assert.Contains(t, res.Content, "Message body goes here.")
	assert.Contains(t, res.Content, "Attachments: one.txt, two.csv, three.png")

	assert.Equal(t, "Test Email Subject", res.Metadata.Subject)
	require.NotNil(t, res.Metadata.Format)
	require.NotNil(t, res.Metadata.Format.Email)
	assert.Len(t, res.Metadata.Format.Email.Attachments, 3)
	assert.Equal(t, "sender@example.com", res.Metadata.Format.Email.FromEmail)
}

func TestExtractMsgLenientRecovery(t *testing.T) {
	data := buildTestMsg()
	truncated := data[:len(data)-512]

	strict := newService(t, nil)
	_, err := strict.Extract(context.Background(), truncated, "", "mail.msg")
	require.Error(t, err)
	assert.True(t, extract.IsKind(err, extract.KindParsing), "got %v", err)

	lenient := newService(t, func(c *config.ExtractionConfig) { c.CFBMode = config.CFBLenient })
	res, err := lenient.Extract(context.Background(), truncated, "", "mail.msg")
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Subject: Test Email Subject")
}
