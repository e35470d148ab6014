package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Censor_Masks_Exact_Word(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	censored, found := moderator.Censor("this is a badword here")

	req.Equal("this is a ******* here", censored)
	req.Len(found, 1)
}

func Test_Censor_Masks_Leet_Speak(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	// When the word hides behind leet substitutions
	censored, found := moderator.Censor("b4dw0rd in disguise")

	// Then the original characters are masked anyway
	req.Equal("******* in disguise", censored)
	req.Len(found, 1)
}

func Test_Censor_Keeps_Clean_Text(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	original := "a perfectly clean sentence"
	censored, found := moderator.Censor(original)

	req.Equal(original, censored)
	req.Empty(found)
}

func Test_Censor_Empty_Input(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	censored, found := moderator.Censor("")

	req.Empty(censored)
	req.Empty(found)
}

func Test_LoadDefault_Builds_Moderator(t *testing.T) {
	req := require.New(t)

	moderator, languages, err := LoadDefault('*')

	req.NoError(err)
	req.NotNil(moderator)
	req.Contains(languages, "en")
	req.Contains(languages, "fr")
}
