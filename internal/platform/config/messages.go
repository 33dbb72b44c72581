package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var errInvalidConfig = errors.New("invalid config")

// Messages holds every user-facing string the bot sends.
type Messages struct {
	FoundLinkSentBy            string   `yaml:"found_link_sent_by"`
	FoundImageSentBy           string   `yaml:"found_image_sent_by"`
	MinutesAgo                 string   `yaml:"minutes_ago"`
	LinkPosted                 string   `yaml:"link_posted"`
	DirectReplyNoOp            string   `yaml:"direct_reply_no_op"`
	NoReplying                 []string `yaml:"no_replying"`
	SendingRandomImage         string   `yaml:"sending_random_image"`
	ReduceSensitivityBtn       string   `yaml:"reduce_sensitivity_btn"`
	ReduceSensitivityMessage   string   `yaml:"reduce_sensitivity_message"`
	IncreaseSensitivityMessage string   `yaml:"increase_sensitivity_message"`
	InvalidResolution          string   `yaml:"invalid_resolution"`
	ResolutionSetMessage       string   `yaml:"resolution_set_message"`
	ThresholdSetMessage        string   `yaml:"threshold_set_message"`
	InvalidThreshold           string   `yaml:"invalid_threshold"`
	SimilarityThreshold        string   `yaml:"similarity_threshold"`
	SimilarPixels              string   `yaml:"similar_pixels"`
	Resolution                 string   `yaml:"resolution"`
	Unauthorized               string   `yaml:"unauthorized"`
	FetchFailed                string   `yaml:"fetch_failed"`
	GenericFailure             string   `yaml:"generic_failure"`
	WebmConverted              string   `yaml:"webm_converted"`
	WebmFailed                 string   `yaml:"webm_failed"`
}

// DefaultMessages returns the built-in English templates.
func DefaultMessages() Messages {
	return Messages{
		FoundLinkSentBy:            "Already posted by",
		FoundImageSentBy:           "Already posted by",
		MinutesAgo:                 "minutes ago",
		LinkPosted:                 "posted:",
		DirectReplyNoOp:            "I don't do replies,",
		NoReplying:                 []string{"Not replying to that.", "No.", "Read the room."},
		SendingRandomImage:         "Here you go:",
		ReduceSensitivityBtn:       "Not a repost",
		ReduceSensitivityMessage:   "Sensitivity reduced.",
		IncreaseSensitivityMessage: "Sensitivity increased.",
		InvalidResolution:          "Resolution must be a whole number between 1 and 100.",
		ResolutionSetMessage:       "Resolution set, image cache cleared.",
		ThresholdSetMessage:        "Similar pixel threshold set.",
		InvalidThreshold:           "Threshold must be a non-negative whole number.",
		SimilarityThreshold:        "Similarity threshold:",
		SimilarPixels:              "Similar pixels:",
		Resolution:                 "Resolution:",
		Unauthorized:               "Only admins can tune duplicate detection.",
		FetchFailed:                "Couldn't fetch that, try again later.",
		GenericFailure:             "Something went wrong handling that message.",
		WebmConverted:              "shared a video (converted from webm)",
		WebmFailed:                 "Failed to convert webm video:",
	}
}

// LoadMessages returns the defaults overlaid with the YAML file at path.
// Keys missing from the file keep their default value.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return msgs, fmt.Errorf("reading messages file: %w", err)
	}

	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return msgs, fmt.Errorf("parsing messages file: %w", err)
	}

	if len(msgs.NoReplying) == 0 {
		msgs.NoReplying = DefaultMessages().NoReplying
	}

	return msgs, nil
}
