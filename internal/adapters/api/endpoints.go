package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/pkg/signage"
)

// Login exchanges credentials for tokens. It never refreshes.
func (c *Client) Login(ctx context.Context, body signage.LoginBody) (signage.Tokens, error) {
	resp, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/auth/login",
		body:     jsonBody(body),
	}, "")
	if err != nil {
		return signage.Tokens{}, err
	}
	var tokens signage.Tokens
	if err := decode(resp, &tokens); err != nil {
		return signage.Tokens{}, err
	}
	return tokens, nil
}

func (c *Client) ListFolders(ctx context.Context, query url.Values) ([]signage.Folder, error) {
	var reply signage.FoldersReply
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/media/folders", query: query}, &reply)
	return reply.Media, err
}

// SaveFolder creates a folder, or edits it when FolderID is set.
func (c *Client) SaveFolder(ctx context.Context, body signage.FolderCreateBody) error {
	endpoint := "/media/folders/create"
	if body.FolderID != nil {
		endpoint = "/media/edit-folder"
	}
	return c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, body: jsonBody(body)}, nil)
}

func (c *Client) DeleteFolder(ctx context.Context, folderID int64) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/media/delete-folder",
		body:     jsonBody(signage.FolderDeleteBody{FolderID: folderID}),
	}, nil)
}

func (c *Client) ListFiles(ctx context.Context, folderID int64, query url.Values) (signage.FilesReply, error) {
	var reply signage.FilesReply
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: fmt.Sprintf("/media/%d/media", folderID),
		query:    query,
	}, &reply)
	return reply, err
}

func (c *Client) RenameFile(ctx context.Context, body signage.FileRenameBody) error {
	return c.do(ctx, request{method: http.MethodPost, endpoint: "/media/edit-file-name", body: jsonBody(body)}, nil)
}

func (c *Client) DeleteFile(ctx context.Context, fileID int64) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/media/delete-file",
		body:     jsonBody(signage.FileDeleteBody{FileID: fileID}),
	}, nil)
}

// UploadMedia streams one file as multipart form data.
func (c *Client) UploadMedia(ctx context.Context, folderID int64, req ports.UploadRequest) (*signage.MediaFile, error) {
	var reply signage.UploadReply
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("/media/%d/upload-media", folderID),
		body:     multipartBody(req),
	}, &reply)
	return reply.Media, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody writes the fields in the order the backend reads them:
// file, size, duration (when known), type.
func multipartBody(req ports.UploadRequest) bodyFunc {
	return func() (io.Reader, string, error) {
		src, err := req.Open()
		if err != nil {
			return nil, "", err
		}
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			defer src.Close()
			pw.CloseWithError(writeForm(mw, req, src))
		}()
		return pr, mw.FormDataContentType(), nil
	}
}

func writeForm(mw *multipart.Writer, req ports.UploadRequest, src io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.Name)))
	header.Set("Content-Type", req.Type)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	if err := mw.WriteField("size", strconv.FormatInt(req.Size, 10)); err != nil {
		return err
	}
	if req.Duration != nil {
		if err := mw.WriteField("duration", strconv.FormatInt(*req.Duration, 10)); err != nil {
			return err
		}
	}
	if err := mw.WriteField("type", req.Type); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) ListPlaylists(ctx context.Context, query url.Values) ([]signage.Playlist, error) {
	var reply signage.PlaylistsReply
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/playlist", query: query}, &reply)
	return reply.Playlists, err
}

func (c *Client) PlaylistOptions(ctx context.Context) ([]signage.PlaylistOption, error) {
	var reply signage.PlaylistOptionsReply
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/playlist/list"}, &reply)
	return reply.Playlist, err
}

// SavePlaylist creates a playlist, or edits it when PlaylistID is set.
func (c *Client) SavePlaylist(ctx context.Context, body signage.PlaylistSaveBody) error {
	endpoint := "/playlist/create"
	if body.PlaylistID != nil {
		endpoint = fmt.Sprintf("/playlist/%d/edit-playlist", *body.PlaylistID)
	}
	return c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, body: jsonBody(body)}, nil)
}

func (c *Client) DeletePlaylist(ctx context.Context, playlistID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, endpoint: fmt.Sprintf("/playlist/%d", playlistID)}, nil)
}

func (c *Client) GetPlaylist(ctx context.Context, playlistID int64, query url.Values) (signage.Playlist, error) {
	var reply signage.PlaylistReply
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: fmt.Sprintf("/playlist/%d", playlistID),
		query:    query,
	}, &reply)
	return reply.Playlist, err
}

func (c *Client) MovePlaylistItem(ctx context.Context, body signage.MoveItemBody) error {
	return c.do(ctx, request{method: http.MethodPost, endpoint: "/playlist/move-item", body: jsonBody(body)}, nil)
}

func (c *Client) DuplicatePlaylistItem(ctx context.Context, body signage.AddFileBody) error {
	return c.do(ctx, request{method: http.MethodPost, endpoint: "/playlist/add-file", body: jsonBody(body)}, nil)
}

func (c *Client) RemovePlaylistItem(ctx context.Context, playlistFileID int64) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: fmt.Sprintf("/playlist/playlistFile/%d", playlistFileID),
	}, nil)
}

func (c *Client) BulkAddFiles(ctx context.Context, body signage.BulkAddFilesBody) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("/playlist/%d/bulk-add-files", body.PlaylistID),
		body:     jsonBody(body),
	}, nil)
}

func (c *Client) BulkAddSubPlaylists(ctx context.Context, body signage.BulkAddSubPlaylistsBody) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("/playlist/%d/bulk-add-sub-playlists", body.PlaylistID),
		body:     jsonBody(body),
	}, nil)
}

func (c *Client) ListPlayers(ctx context.Context, query url.Values) ([]signage.Player, error) {
	var reply signage.PlayersReply
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/players", query: query}, &reply)
	return reply.Players, err
}

// SavePlayer creates a player, or edits it when PlayerID is set.
func (c *Client) SavePlayer(ctx context.Context, body signage.PlayerSaveBody) error {
	endpoint := "/players"
	if body.PlayerID != nil {
		endpoint = "/players/edit"
	}
	return c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, body: jsonBody(body)}, nil)
}

func (c *Client) AssignPlaylist(ctx context.Context, playerID int64, body signage.PlayerPlaylistBody) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("/players/%d/update-playlist", playerID),
		body:     jsonBody(body),
	}, nil)
}

func (c *Client) ListTrash(ctx context.Context, query url.Values) ([]signage.TrashEntry, error) {
	var reply signage.TrashReply
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/trash", query: query}, &reply)
	return reply.Items, err
}

func (c *Client) RestoreTrash(ctx context.Context, kind string, id int64) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: fmt.Sprintf("/trash/%s/%d/restore", url.PathEscape(kind), id),
	}, nil)
}

func (c *Client) DeleteTrash(ctx context.Context, kind string, id int64) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: fmt.Sprintf("/trash/%s/%d", url.PathEscape(kind), id),
	}, nil)
}
