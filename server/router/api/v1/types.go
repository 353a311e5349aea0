package v1

import "github.com/hilite/wingman/store"

type replyResponse struct {
	UID       string `json:"uid"`
	Content   string `json:"content"`
	Tone      string `json:"tone"`
	CreatedTs int64  `json:"createdTs"`
}

type dialogResponse struct {
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	Context   string   `json:"context,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Elements  []string `json:"elements"`
	ImagePath string   `json:"imagePath,omitempty"`
	CreatedTs int64    `json:"createdTs"`
	UpdatedTs int64    `json:"updatedTs"`

	Replies []*replyResponse `json:"replies,omitempty"`
}

type groupResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	Pinned    bool   `json:"pinned"`
	CoverPath string `json:"coverPath,omitempty"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`

	Dialogs []*dialogResponse `json:"dialogs,omitempty"`
}

type shortcutReplyResponse struct {
	DialogUID string `json:"dialogUid"`
	Content   string `json:"content"`
	Tone      string `json:"tone"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Fetched   bool   `json:"fetched"`
}

func convertReply(reply *store.Reply) *replyResponse {
	return &replyResponse{
		UID:       reply.UID,
		Content:   reply.Content,
		Tone:      string(reply.Tone),
		CreatedTs: reply.CreatedTs,
	}
}

func convertReplies(replies []*store.Reply) []*replyResponse {
	out := make([]*replyResponse, 0, len(replies))
	for _, r := range replies {
		out = append(out, convertReply(r))
	}
	return out
}

func convertDialog(dialog *store.Dialog, imagePath string) *dialogResponse {
	resp := &dialogResponse{
		UID:       dialog.UID,
		Title:     dialog.Title,
		Elements:  dialog.Elements,
		ImagePath: imagePath,
		CreatedTs: dialog.CreatedTs,
		UpdatedTs: dialog.UpdatedTs,
	}
	if dialog.ContextText != nil {
		resp.Context = *dialog.ContextText
	}
	if dialog.Summary != nil {
		resp.Summary = *dialog.Summary
	}
	return resp
}

func convertGroup(group *store.DialogGroup, coverPath string) *groupResponse {
	return &groupResponse{
		UID:       group.UID,
		Title:     group.Title,
		Pinned:    group.Pinned,
		CoverPath: coverPath,
		CreatedTs: group.CreatedTs,
		UpdatedTs: group.UpdatedTs,
	}
}
