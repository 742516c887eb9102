package personalize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

var rahim = model.Member{
	ID:             1,
	Name:           "Rahim Uddin",
	NameBangla:     "রহিম উদ্দিন",
	Email:          "rahim@example.org",
	Mobile:         "01712345678",
	MembershipCode: "GM-0012",
	Batch:          "2019",
	Extra:          model.Profile{"Blood Group": "O+"},
}

func TestRenderBanglaBeforeGenericName(t *testing.T) {
	got := Render("[Name Bangla] / [Name]", rahim)
	assert.Equal(t, "রহিম উদ্দিন / Rahim Uddin", got)

	got = Render("[bangla name] and [NAME (Bangla)]", rahim)
	assert.Equal(t, "রহিম উদ্দিন and রহিম উদ্দিন", got)
}

func TestRenderTokens(t *testing.T) {
	tpl := "Dear [Recipient's Name], batch [Batch] ([Membership Type], [membership code]). " +
		"We have [email] and [Phone] / [MOBILE]."
	want := "Dear Rahim Uddin, batch 2019 (GM, GM-0012). " +
		"We have rahim@example.org and 01712345678 / 01712345678."
	assert.Equal(t, want, Render(tpl, rahim))
}

func TestRenderFallbacks(t *testing.T) {
	anon := model.Member{ID: 2}
	assert.Equal(t, "Hi Valued Member, <>", Render("Hi [Name], <[Email]>", anon))
	assert.Equal(t, "Valued Member", Render("[Name Bangla]", anon))
	assert.Equal(t, "Batch: ", Render("Batch: [Batch]", anon))
}

func TestRenderExtraFields(t *testing.T) {
	assert.Equal(t, "Blood group O+", Render("Blood group [blood_group]", rahim))
	assert.Equal(t, "Keep [Unknown Token]", Render("Keep [Unknown Token]", rahim))
}

func TestRenderDoesNotRescanSubstitutedValues(t *testing.T) {
	ann := model.Member{ID: 3, Name: "Ann [Email]", Email: "ann@example.org"}
	assert.Equal(t, "Hi Ann [Email]", Render("Hi [Name]", ann))
	assert.Equal(t, "Ann [Email] <ann@example.org>", Render("[Name] <[Email]>", ann))
}

func TestRenderNameTokenIsExact(t *testing.T) {
	ann := model.Member{
		ID:    4,
		Name:  "Ann",
		Email: "ann@example.org",
		Extra: model.Profile{"Name of Spouse": "Bob"},
	}
	assert.Equal(t, "Spouse: Bob", Render("Spouse: [Name of Spouse]", ann))
	assert.Equal(t, "see [Namespace] docs", Render("see [Namespace] docs", ann))
	assert.Equal(t, "Ann / Ann / Ann", Render("[Full Name] / [member name] / [ name ]", ann))
}

func TestRenderWithoutPlaceholdersIsIdentity(t *testing.T) {
	for _, text := range []string{
		"",
		"Annual meetup on Friday.",
		"Use the link [here](https://example.org)",
		"Brackets [] stay",
	} {
		assert.Equal(t, text, Render(text, rahim))
	}
}

func TestRenderConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "Hello Rahim Uddin", Render("Hello [Name]", rahim))
		}()
	}
	wg.Wait()
}

func TestRenderMessage(t *testing.T) {
	msg := RenderMessage(model.ChannelEmail, "News for [Name]", "Hi [Name]", rahim)
	assert.Equal(t, "rahim@example.org", msg.To)
	assert.Equal(t, "News for Rahim Uddin", msg.Subject)
	assert.Equal(t, "Hi Rahim Uddin", msg.Text)

	sms := RenderMessage(model.ChannelSMS, "ignored", "Hi [Name]", rahim)
	assert.Equal(t, "01712345678", sms.To)
	assert.Empty(t, sms.Subject)
}
