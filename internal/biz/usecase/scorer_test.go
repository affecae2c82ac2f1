package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_WhitelistOverridesEverything(t *testing.T) {
	signals := testSignals()
	texts := []string{
		"",
		"hello",
		"CASINO AIRDROP BONUS GIVEAWAY bit.ly/xyz!!!!!!",
		strings.Repeat("🎉 ", 20) + "https://example.com",
	}

	for _, text := range texts {
		for _, hasMedia := range []bool{false, true} {
			for _, isNew := range []bool{false, true} {
				res := Evaluate(text, hasMedia, isNew, true, signals)
				assert.False(t, res.IsSpam, "text=%q media=%v new=%v", text, hasMedia, isNew)
				assert.Zero(t, res.TotalScore)
				assert.Empty(t, res.Reasons)
			}
		}
	}
}

func TestEvaluate_EmptyText(t *testing.T) {
	for _, text := range []string{"", "\xff\xfe"} {
		res := Evaluate(text, true, true, false, testSignals())
		assert.False(t, res.IsSpam)
		assert.Zero(t, res.TotalScore)
		assert.Empty(t, res.Reasons)
	}
}

func TestEvaluate_WhitespaceIsScored(t *testing.T) {
	signals := testSignals()

	assert.Zero(t, Evaluate("   ", false, false, false, signals).TotalScore)
	assert.Zero(t, Evaluate("\n\n\n\n\n\n", false, false, false, signals).TotalScore)

	res := Evaluate("     ", false, false, false, signals)
	assert.Equal(t, 10, res.TotalScore)
	assert.Equal(t, []string{"repeated characters"}, res.Reasons)
	assert.False(t, res.IsSpam)
}

func TestEvaluate_NilSignals(t *testing.T) {
	res := Evaluate("casino airdrop bonus giveaway", false, false, false, nil)
	assert.False(t, res.IsSpam)
	assert.Zero(t, res.TotalScore)
}

func TestEvaluate_SuspiciousDomainDominance(t *testing.T) {
	signals := testSignals()

	res := Evaluate("check this out bit.ly/abc", false, false, false, signals)
	assert.True(t, res.IsSpam)
	assert.GreaterOrEqual(t, res.TotalScore, 50)
	require.NotEmpty(t, res.Reasons)
	assert.Equal(t, "suspicious domain: bit.ly", res.Reasons[0])

	// still spam when the cutoff is raised above the domain weight
	strict := *signals
	strict.Thresholds.SpamCutoff = 90
	res = Evaluate("join t.me/joinchat/abc and bit.ly/x", false, false, false, &strict)
	assert.True(t, res.IsSpam)
	assert.Equal(t, "suspicious domain: bit.ly, t.me/joinchat", res.Reasons[0])
}

func TestEvaluate_KeywordThresholdBoundary(t *testing.T) {
	signals := testSignals()

	two := Evaluate("casino and airdrop today", false, false, false, signals)
	assert.False(t, two.IsSpam)
	assert.Zero(t, two.TotalScore)

	// 30 + 5*3 = 45, below the cutoff of 50
	three := Evaluate("casino and airdrop with bonus", false, false, false, signals)
	assert.Equal(t, 45, three.TotalScore)
	assert.False(t, three.IsSpam)

	// 30 + 5*4 = 50, exactly the cutoff
	four := Evaluate("casino and airdrop with bonus giveaway", false, false, false, signals)
	assert.Equal(t, 50, four.TotalScore)
	assert.True(t, four.IsSpam)
	assert.Equal(t, []string{"spam keywords (4): casino, airdrop, bonus"}, four.Reasons)
}

func TestEvaluate_MediaTightensThreshold(t *testing.T) {
	res := Evaluate("casino and airdrop", true, false, false, testSignals())

	// keyword signal 30 + 5*2 plus media compounding 20
	assert.Equal(t, 60, res.TotalScore)
	assert.True(t, res.IsSpam)
	assert.Equal(t, []string{"spam keywords (2): casino, airdrop", "media with spam keywords"}, res.Reasons)
}

func TestEvaluate_MediaThresholdWinsOverNewMember(t *testing.T) {
	signals := testSignals()
	signals.Thresholds.KeywordNewMember = 1
	signals.Thresholds.KeywordWithMedia = 3

	res := Evaluate("casino and airdrop", true, true, false, signals)
	for _, r := range res.Reasons {
		assert.NotContains(t, r, "spam keywords")
	}
}

func TestEvaluate_NewMemberBoostAppliesOnce(t *testing.T) {
	res := Evaluate("casino airdrop at https://example.com", false, true, false, testSignals())

	count := 0
	for _, r := range res.Reasons {
		if strings.Contains(r, "new member") {
			count++
		}
	}
	assert.Equal(t, 1, count)
	// keywords 30+10, new member 20
	assert.Equal(t, 60, res.TotalScore)
	assert.True(t, res.IsSpam)
}

func TestEvaluate_NewMemberWithLinkOnly(t *testing.T) {
	res := Evaluate("see www.example.org", false, true, false, testSignals())
	assert.Equal(t, 20, res.TotalScore)
	assert.False(t, res.IsSpam)
}

func TestEvaluate_EmojiWithLink(t *testing.T) {
	signals := testSignals()
	emoji := strings.Repeat("🎉 ", 11)

	withLink := Evaluate(emoji+"visit https://example.com", false, false, false, signals)
	assert.Equal(t, 25, withLink.TotalScore)
	assert.Equal(t, []string{"too many emoji (11) with link"}, withLink.Reasons)

	withoutLink := Evaluate(emoji+"party time", false, false, false, signals)
	assert.Zero(t, withoutLink.TotalScore)

	atThreshold := Evaluate(strings.Repeat("🎉 ", 10)+"https://example.com", false, false, false, signals)
	assert.Zero(t, atThreshold.TotalScore)
}

func TestEvaluate_ExcessiveCaps(t *testing.T) {
	signals := testSignals()

	res := Evaluate("THIS IS A GREAT DEAL", false, false, false, signals)
	assert.Equal(t, 15, res.TotalScore)
	assert.Equal(t, []string{"excessive capitals"}, res.Reasons)

	short := Evaluate("HELLO", false, false, false, signals)
	assert.Zero(t, short.TotalScore)

	fewLetters := Evaluate("ABC 1234567890", false, false, false, signals)
	assert.Zero(t, fewLetters.TotalScore)
}

func TestEvaluate_RepeatedCharacters(t *testing.T) {
	signals := testSignals()

	assert.Equal(t, 10, Evaluate("wowwwww look", false, false, false, signals).TotalScore)
	assert.Equal(t, 10, Evaluate("really!!!!!", false, false, false, signals).TotalScore)
	assert.Zero(t, Evaluate("wowww look", false, false, false, signals).TotalScore)
}

func TestEvaluate_LearnedKeywordsCountAndAreMarked(t *testing.T) {
	signals := testSignals().WithLearned([]string{"Moonshot", "casino"})
	require.Equal(t, []string{"moonshot"}, signals.Learned)

	res := Evaluate("moonshot casino airdrop bonus", false, false, false, signals)
	assert.Equal(t, 50, res.TotalScore)
	assert.True(t, res.IsSpam)
	assert.Equal(t, "spam keywords (4): casino, airdrop, bonus", res.Reasons[0])

	res = Evaluate("moonshot casino", false, true, false, signals)
	assert.Contains(t, res.Reasons[0], "moonshot*")
}

func TestEvaluate_CaseAndWidthInsensitive(t *testing.T) {
	res := Evaluate("ＣＡＳＩＮＯ Airdrop BoNuS GIVEAWAY now", false, false, false, testSignals())
	assert.Contains(t, res.Reasons[0], "spam keywords (4)")
}

func TestEvaluate_InvalidUTF8(t *testing.T) {
	assert.NotPanics(t, func() {
		res := Evaluate("\xff\xfe\xfd casino", false, false, false, testSignals())
		assert.False(t, res.IsSpam)
	})
}

func TestEvaluate_ReasonsInEvaluationOrder(t *testing.T) {
	res := Evaluate("CASINO AIRDROP BONUS bit.ly!!!!!", true, true, false, testSignals())
	require.True(t, res.IsSpam)

	order := []string{"suspicious domain", "spam keywords", "excessive capitals", "repeated characters", "new member", "media with spam keywords"}
	require.Len(t, res.Reasons, len(order))
	for i, prefix := range order {
		assert.True(t, strings.HasPrefix(res.Reasons[i], prefix), "reason %d = %q", i, res.Reasons[i])
	}
	assert.Equal(t, strings.Join(res.Reasons, " | "), res.Reason())
}

func TestCountEmoji_Graphemes(t *testing.T) {
	assert.Equal(t, 0, countEmoji("plain text"))
	assert.Equal(t, 3, countEmoji("🚀🎉💰"))
	// a flag is two regional indicators forming one cluster
	assert.Equal(t, 1, countEmoji("🇩🇪"))
	assert.Equal(t, 1, countEmoji("👍🏽"))
}
