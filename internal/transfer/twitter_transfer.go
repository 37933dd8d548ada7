package transfer

type TweetMediaRef struct {
	MediaIDs []string `json:"media_ids"`
}

type TweetReplyRef struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type TweetCreateRequest struct {
	Text  string         `json:"text"`
	Media *TweetMediaRef `json:"media,omitempty"`
	Reply *TweetReplyRef `json:"reply,omitempty"`
}

type TweetCreateResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type MediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type TweetMetricsResponse struct {
	Data []struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			LikeCount       int64 `json:"like_count"`
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type TwitterErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
