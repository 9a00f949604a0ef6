package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrompterPiped(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("student@akane.waseda.jp\nhunter2"), &out)

	email, err := p.Line("Email: ")
	require.NoError(t, err)
	require.Equal(t, "student@akane.waseda.jp", email)

	password, err := p.Password("Password: ")
	require.NoError(t, err)
	require.Equal(t, "hunter2", password)

	require.Equal(t, "Email: Password: ", out.String())
}
