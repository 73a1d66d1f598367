package domain

// User is the signed-in identity decoded from the session token.
type User struct {
	Id    UserId `json:"id"`
	Email Email  `json:"email"`
	Name  string `json:"name"`
}

// Author is a denormalized snapshot taken when a post is created; it is not
// refreshed when the user profile changes.
type Author struct {
	Id   UserId `json:"id"`
	Name string `json:"name"`
}

func (u User) AsAuthor() Author {
	return Author{Id: u.Id, Name: u.Name}
}
