package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.com/about", "acme.com"},
		{"http://Careers.Acme.com", "careers.acme.com"},
		{"acme.io/blog", "acme.io"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.in))
		})
	}
}

func TestDedupe(t *testing.T) {
	in := []Result{
		{URL: "https://acme.com/"},
		{URL: "https://acme.com"},
		{URL: ""},
		{URL: "https://news.example.com"},
	}
	out := Dedupe(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "https://acme.com/", out[0].URL)
}

func TestPreferCompany(t *testing.T) {
	in := []Result{
		{URL: "https://glassdoor.com/acme-reviews"},
		{URL: "https://techcrunch.com/acme"},
		{URL: "https://www.acme.com/about"},
	}
	out := PreferCompany(in, "Acme Corp")
	assert.Equal(t, "https://www.acme.com/about", out[0].URL)
	assert.Equal(t, "https://techcrunch.com/acme", out[2].URL)
	// input untouched
	assert.Equal(t, "https://glassdoor.com/acme-reviews", in[0].URL)
}
