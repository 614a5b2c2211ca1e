package server

import (
	"context"
	"net/http"

	"github.com/masambo/jukebox-joy-scan/core/auth"
	"github.com/masambo/jukebox-joy-scan/core/scan"
	"github.com/masambo/jukebox-joy-scan/model"
	"github.com/masambo/jukebox-joy-scan/repository"
)

// stubBarRepo 内存实现的酒吧仓库，记录更新调用
type stubBarRepo struct {
	bars    map[int64]*model.Bar
	manages map[int64]map[int64]bool
	updated *model.Bar
}

func newStubBarRepo() *stubBarRepo {
	return &stubBarRepo{
		bars:    make(map[int64]*model.Bar),
		manages: make(map[int64]map[int64]bool),
	}
}

func (s *stubBarRepo) CreateBar(ctx context.Context, bar *model.Bar) (int64, error) {
	id := int64(len(s.bars) + 1)
	bar.ID = id
	s.bars[id] = bar
	return id, nil
}

func (s *stubBarRepo) GetBarByID(ctx context.Context, id int64) (*model.Bar, error) {
	return s.bars[id], nil
}

func (s *stubBarRepo) GetBarBySlug(ctx context.Context, slug string) (*model.Bar, error) {
	for _, bar := range s.bars {
		if bar.Slug == slug {
			return bar, nil
		}
	}
	return nil, nil
}

func (s *stubBarRepo) GetBarForManager(ctx context.Context, userID int64) (*model.Bar, error) {
	for barID := range s.manages[userID] {
		return s.bars[barID], nil
	}
	return nil, nil
}

func (s *stubBarRepo) ManagesBar(ctx context.Context, userID, barID int64) (bool, error) {
	return s.manages[userID][barID], nil
}

func (s *stubBarRepo) UpdateBar(ctx context.Context, bar *model.Bar) error {
	s.updated = bar
	s.bars[bar.ID] = bar
	return nil
}

func (s *stubBarRepo) AddManager(ctx context.Context, userID, barID int64) error {
	if s.manages[userID] == nil {
		s.manages[userID] = make(map[int64]bool)
	}
	s.manages[userID][barID] = true
	return nil
}

// stubPlaylistRepo 内存实现的歌单仓库
type stubPlaylistRepo struct {
	nextID    int64
	playlists map[int64]*model.Playlist
	songs     map[int64][]int64
	entries   map[int64][]*model.PlaylistEntry
	deleted   []int64
}

func newStubPlaylistRepo() *stubPlaylistRepo {
	return &stubPlaylistRepo{
		playlists: make(map[int64]*model.Playlist),
		songs:     make(map[int64][]int64),
		entries:   make(map[int64][]*model.PlaylistEntry),
	}
}

func (s *stubPlaylistRepo) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error) {
	s.nextID++
	playlist.ID = s.nextID
	s.playlists[playlist.ID] = playlist
	return playlist.ID, nil
}

func (s *stubPlaylistRepo) GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error) {
	return s.playlists[id], nil
}

func (s *stubPlaylistRepo) GetPlaylistsByBarID(ctx context.Context, barID int64) ([]*model.PlaylistWithCount, error) {
	var out []*model.PlaylistWithCount
	for _, p := range s.playlists {
		if p.BarID == barID {
			out = append(out, &model.PlaylistWithCount{Playlist: *p, SongCount: len(s.songs[p.ID])})
		}
	}
	return out, nil
}

func (s *stubPlaylistRepo) RenamePlaylist(ctx context.Context, id int64, name string) error {
	s.playlists[id].Name = name
	return nil
}

func (s *stubPlaylistRepo) DeletePlaylist(ctx context.Context, id int64) error {
	delete(s.playlists, id)
	delete(s.songs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubPlaylistRepo) AddSongs(ctx context.Context, playlistID int64, songIDs []int64) (int, error) {
	added := 0
	for _, songID := range songIDs {
		dup := false
		for _, existing := range s.songs[playlistID] {
			if existing == songID {
				dup = true
				break
			}
		}
		if !dup {
			s.songs[playlistID] = append(s.songs[playlistID], songID)
			added++
		}
	}
	return added, nil
}

func (s *stubPlaylistRepo) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	songs := s.songs[playlistID]
	for i, existing := range songs {
		if existing == songID {
			s.songs[playlistID] = append(songs[:i], songs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubPlaylistRepo) GetPlaylistEntries(ctx context.Context, playlistID int64) ([]*model.PlaylistEntry, error) {
	return s.entries[playlistID], nil
}

// stubCatalogSongRepo 只提供酒吧选歌列表的歌曲仓库
type stubCatalogSongRepo struct {
	byBar map[int64][]*model.SongWithAlbum
}

func (s *stubCatalogSongRepo) CreateSongs(ctx context.Context, albumID int64, songs []*model.Song) error {
	return nil
}

func (s *stubCatalogSongRepo) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	return nil, nil
}

func (s *stubCatalogSongRepo) GetSongsByBarID(ctx context.Context, barID int64) ([]*model.SongWithAlbum, error) {
	return s.byBar[barID], nil
}

func (s *stubCatalogSongRepo) DeleteSongsByAlbumID(ctx context.Context, albumID int64) error {
	return nil
}

var _ repository.SongRepository = (*stubCatalogSongRepo)(nil)

func newTestAPIHandler(barRepo *stubBarRepo, playlistRepo *stubPlaylistRepo, songRepo repository.SongRepository) *APIHandler {
	return &APIHandler{
		barRepo:      barRepo,
		playlistRepo: playlistRepo,
		songRepo:     songRepo,
		sessions:     scan.NewManager(),
		progress:     newScanProgressHub(),
	}
}

// withAuth 把已认证用户注入请求上下文，等价于通过了AuthMiddleware
func withAuth(r *http.Request, userID int64, roles ...string) *http.Request {
	claims := &auth.Claims{UserID: userID, Roles: roles}
	ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
	ctx = context.WithValue(ctx, contextKeyClaims, claims)
	return r.WithContext(ctx)
}
