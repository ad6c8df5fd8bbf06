package notify

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ngamolsky/Curbd/pkg/models"
)

func TestRenderPost(t *testing.T) {
	g := NewWithT(t)
	post := models.GeneratedPost{
		Title:       "Free <b>lamp</b>",
		Description: "Works & glows.",
		Hashtags:    []string{"free", "#lamp"},
	}

	g.Expect(Subject(post)).To(Equal("Your Curbd post: Free <b>lamp</b>"))
	g.Expect(RenderText(post)).To(Equal("Free <b>lamp</b>\n\nWorks & glows.\n\n#free #lamp"))
	g.Expect(RenderHTML(post)).To(Equal(
		"<h1>Free &lt;b&gt;lamp&lt;/b&gt;</h1><p>Works &amp; glows.</p><p><span>#free</span> <span>#lamp</span></p>"))
}
