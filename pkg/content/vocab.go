package content

// Vocabularies below are tuned against real scraped feeds; entries are
// matched as case-insensitive substrings.

// uiElements are interface fragments that mark a word or line as UI chrome
// rather than post text. Includes Hebrew equivalents seen on localized
// profiles.
var uiElements = []string{
	"like", "comment", "share", "reply", "react", "author", "sponsored", "promoted",
	"see more", "see less", "show more", "show less", "view more", "view less",
	"online status indicator", "active", "offline", "just now", "minutes ago",
	"hours ago", "days ago", "weeks ago", "months ago", "years ago",
	"follow", "unfollow", "friend request", "message", "poke", "tag",
	"edit", "delete", "report", "block", "hide", "save", "unsave",
	"לייק", "תגובה", "שיתוף", "מענה", "פעיל", "מקוון",
}

// facebookUI are composer and feed chrome phrases.
var facebookUI = []string{
	"what's on your mind", "write something", "add to your post",
	"feeling/activity", "check in", "live video", "photo/video",
	"create room", "sell something", "support nonprofit", "celebrate",
	"ask for recommendations", "create poll", "watch party",
}

// marketingIndicators are positive signals for promotional copy.
var marketingIndicators = []string{
	"click", "buy", "shop", "order", "purchase", "get", "download",
	"learn more", "find out", "discover", "sign up", "register",
	"contact", "call", "email", "visit", "book", "schedule",
	"limited time", "offer", "deal", "discount", "sale", "free",
	"exclusive", "special", "new", "launch", "announcement",
}

// personalIndicators are signals for personal (non-marketing) posts.
var personalIndicators = []string{
	"feeling", "excited", "happy", "sad", "grateful", "blessed",
	"family", "friends", "vacation", "trip", "birthday", "anniversary",
	"thank you", "congrats", "congratulations", "prayers", "thoughts",
}

// namePatterns are author-line fragments that recur in scraped chrome.
var namePatterns = []string{
	"author", "liran galizyan", "moshiko gorge", "karina gorge", "etgar shpivak",
}

// timeIndicators are relative-timestamp phrases.
var timeIndicators = []string{
	"minutes ago", "hours ago", "days ago", "weeks ago",
}
