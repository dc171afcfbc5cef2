package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicObjectURL(t *testing.T) {
	req := require.New(t)

	u, err := publicObjectURL("http://localhost:9000", "reports", "u1/reports/abc.pdf")
	req.NoError(err)
	req.Equal("http://localhost:9000/reports/u1/reports/abc.pdf", u)

	u, err = publicObjectURL("https://cdn.example.com/files/", "reports", "u1/reports/abc.png")
	req.NoError(err)
	req.Equal("https://cdn.example.com/files/reports/u1/reports/abc.png", u)
}
