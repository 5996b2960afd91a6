package github

// Me is the signed-in user as shown in the header.
type Me struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	AvatarURL string  `json:"avatar_url"`
	Name      *string `json:"name"`
}

type Repository struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Description   *string `json:"description"`
	Private       bool    `json:"private"`
	UpdatedAt     string  `json:"updated_at"`
	DefaultBranch string  `json:"default_branch"`
}

type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

const (
	ContentTypeFile = "file"
	ContentTypeDir  = "dir"
)

// Content is one entry of the contents API. Content and Encoding are only
// populated when a single file is requested.
type Content struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int    `json:"size"`
	SHA         string `json:"sha"`
	Content     string `json:"content,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	URL         string `json:"url,omitempty"`
	GitURL      string `json:"git_url,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

func (c Content) IsDir() bool  { return c.Type == ContentTypeDir }
func (c Content) IsFile() bool { return c.Type == ContentTypeFile }

type Contributor struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
	Contributions int    `json:"contributions"`
}

type Author struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// WeekStat is one week of a contributor's activity. W is the week start in
// unix seconds.
type WeekStat struct {
	W int64 `json:"w"`
	A int   `json:"a"`
	D int   `json:"d"`
	C int   `json:"c"`
}

type ContributorStats struct {
	Author *Author    `json:"author"`
	Total  int        `json:"total"`
	Weeks  []WeekStat `json:"weeks"`
}

// CommitActivity is one week of repository commit counts. Days starts on
// Sunday; Week is the week start in unix seconds.
type CommitActivity struct {
	Days  []int `json:"days"`
	Total int   `json:"total"`
	Week  int64 `json:"week"`
}

// Languages maps a language name to the number of bytes written in it.
type Languages map[string]int
