package configkey

const (
	KrepoAPIURL = "krepo.api.url"
	LoginFile   = "krepo.login.file"
)
